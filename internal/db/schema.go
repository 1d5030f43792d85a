package db

import "fmt"

// schemaTemplate contains the database schema. The single %d verb is the
// embedding dimension of the segment vector index.
const schemaTemplate = `
    -- ==========================================================================
    -- VIDEO TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS video SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS title ON video TYPE string;
    DEFINE FIELD IF NOT EXISTS source_url ON video TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS collection ON video TYPE string;
    DEFINE FIELD IF NOT EXISTS indexed ON video TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS segment_count ON video TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS transcript ON video TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created ON video TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated ON video TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS video_collection ON video FIELDS collection;

    -- ==========================================================================
    -- SEGMENT TABLE (timestamped transcript cues)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS segment SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS video ON segment TYPE record<video>;
    DEFINE FIELD IF NOT EXISTS position ON segment TYPE int;
    DEFINE FIELD IF NOT EXISTS start_time ON segment TYPE float;
    DEFINE FIELD IF NOT EXISTS end_time ON segment TYPE float;
    DEFINE FIELD IF NOT EXISTS text ON segment TYPE string;
    DEFINE FIELD IF NOT EXISTS embedding ON segment TYPE option<array<float>>;

    DEFINE INDEX IF NOT EXISTS segment_video ON segment FIELDS video;
    -- Searches score a video's segments exactly; the HNSW index pins the embedding dimension.
    DEFINE INDEX IF NOT EXISTS segment_embedding ON segment FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;
    DEFINE ANALYZER IF NOT EXISTS segment_analyzer TOKENIZERS class FILTERS lowercase, ascii, snowball(english);
    DEFINE INDEX IF NOT EXISTS segment_text_ft ON segment FIELDS text FULLTEXT ANALYZER segment_analyzer BM25;
`

// SchemaSQL returns the schema for the given embedding dimension.
func SchemaSQL(dimension int) string {
	return fmt.Sprintf(schemaTemplate, dimension)
}
