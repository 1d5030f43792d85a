package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/raphaelgruber/videorag-go/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

const videoFields = "id, title, source_url, collection, indexed, segment_count, created, updated"

// UpsertVideo creates or updates a video record by ID. Index state is left
// untouched on update.
func (c *Client) UpsertVideo(ctx context.Context, input models.VideoInput) (*models.Video, error) {
	if input.ID == "" {
		return nil, fmt.Errorf("upsert video: %w: empty id", models.ErrValidation)
	}

	sql := `
		UPSERT type::record("video", $id) SET
			title = $title,
			source_url = $source_url,
			collection = $collection,
			indexed = IF indexed THEN indexed ELSE false END,
			segment_count = IF segment_count THEN segment_count ELSE 0 END,
			created = IF created THEN created ELSE time::now() END,
			updated = time::now()
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.Video](ctx, c.db, sql, map[string]any{
		"id":         input.ID,
		"title":      input.Title,
		"source_url": input.SourceURL,
		"collection": input.Collection,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert video: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("upsert video: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// GetVideo retrieves a video by ID without its transcript.
// Returns nil if not found.
func (c *Client) GetVideo(ctx context.Context, id string) (*models.Video, error) {
	sql := fmt.Sprintf(`SELECT %s FROM type::record("video", $id)`, videoFields)
	results, err := surrealdb.Query[[]models.Video](ctx, c.db, sql, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// ListVideos returns the videos of a collection ordered by title.
// An empty collection lists every video.
func (c *Client) ListVideos(ctx context.Context, collection string) ([]models.Video, error) {
	where := ""
	vars := map[string]any{}
	if collection != "" {
		where = "WHERE collection = $collection"
		vars["collection"] = collection
	}

	sql := fmt.Sprintf(`SELECT %s FROM video %s ORDER BY title`, videoFields, where)
	results, err := surrealdb.Query[[]models.Video](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Video{}, nil
	}
	return (*results)[0].Result, nil
}

// ListCollections returns collection names with their video counts.
func (c *Client) ListCollections(ctx context.Context) ([]models.CollectionCount, error) {
	type row struct {
		Collection string `json:"collection"`
		Count      int    `json:"count"`
	}

	results, err := surrealdb.Query[[]row](ctx, c.db, `
		SELECT collection, count() AS count FROM video GROUP BY collection ORDER BY collection
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	out := []models.CollectionCount{}
	if results == nil || len(*results) == 0 {
		return out, nil
	}
	for _, r := range (*results)[0].Result {
		out = append(out, models.CollectionCount{Name: r.Collection, Count: r.Count})
	}
	return out, nil
}

// ReplaceSegments atomically swaps the indexed segments of a video, stores its
// full transcript and marks it indexed. Returns the number of stored segments.
func (c *Client) ReplaceSegments(
	ctx context.Context,
	videoID string,
	segments []models.TranscriptSegmentInput,
	transcript string,
) (int, error) {
	rows := make([]map[string]any, len(segments))
	for i, s := range segments {
		row := map[string]any{
			"position":   s.Position,
			"start_time": s.StartTime,
			"end_time":   s.EndTime,
			"text":       s.Text,
		}
		// Missing keys read as NONE, which the option<> field accepts.
		if len(s.Embedding) > 0 {
			row["embedding"] = s.Embedding
		}
		rows[i] = row
	}

	sql := `
		BEGIN TRANSACTION;
		LET $exists = array::len(SELECT id FROM type::record("video", $video)) > 0;
		IF !$exists {
			THROW "video not found"
		};
		DELETE segment WHERE video = type::record("video", $video);
		FOR $s IN $segments {
			CREATE segment SET
				video = type::record("video", $video),
				position = $s.position,
				start_time = $s.start_time,
				end_time = $s.end_time,
				text = $s.text,
				embedding = $s.embedding;
		};
		UPDATE type::record("video", $video) SET
			indexed = true,
			segment_count = array::len($segments),
			transcript = $transcript,
			updated = time::now();
		COMMIT TRANSACTION;
	`

	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"video":      videoID,
		"segments":   rows,
		"transcript": transcript,
	})
	if err != nil {
		if strings.Contains(err.Error(), "video not found") {
			return 0, fmt.Errorf("replace segments: %w: %s", ErrNotFound, videoID)
		}
		return 0, fmt.Errorf("replace segments: %w", wrapQueryError(err))
	}
	return len(segments), nil
}

// SearchSegmentsVector returns the segments of a video nearest to embedding,
// scored by cosine similarity. Every embedded segment of the video is scored,
// so hits from other videos cannot crowd it out; segments without an
// embedding are skipped.
func (c *Client) SearchSegmentsVector(ctx context.Context, videoID string, embedding []float32, limit int) ([]models.SegmentHit, error) {
	sql := `
		SELECT start_time, end_time, text,
			vector::similarity::cosine(embedding, $emb) AS score
		FROM segment
		WHERE video = type::record("video", $video) AND embedding != NONE
		ORDER BY score DESC
		LIMIT $limit
	`

	results, err := surrealdb.Query[[]models.SegmentHit](ctx, c.db, sql, map[string]any{
		"video": videoID,
		"emb":   embedding,
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.SegmentHit{}, nil
	}
	return (*results)[0].Result, nil
}

// SearchSegmentsText returns the segments of a video matching query by BM25.
// Scores are raw BM25 values and are not bounded.
func (c *Client) SearchSegmentsText(ctx context.Context, videoID, query string, limit int) ([]models.SegmentHit, error) {
	results, err := surrealdb.Query[[]models.SegmentHit](ctx, c.db, `
		SELECT start_time, end_time, text, search::score(0) AS score
		FROM segment
		WHERE video = type::record("video", $video) AND text @0@ $q
		ORDER BY score DESC
		LIMIT $limit
	`, map[string]any{
		"video": videoID,
		"q":     query,
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.SegmentHit{}, nil
	}
	return (*results)[0].Result, nil
}

// GetTranscript returns the stored full transcript of a video, or "" when
// none was stored.
func (c *Client) GetTranscript(ctx context.Context, videoID string) (string, error) {
	results, err := surrealdb.Query[[]*string](ctx, c.db, `
		SELECT VALUE transcript FROM type::record("video", $id)
	`, map[string]any{"id": videoID})
	if err != nil {
		return "", fmt.Errorf("get transcript: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return "", fmt.Errorf("get transcript: %w: %s", ErrNotFound, videoID)
	}
	if t := (*results)[0].Result[0]; t != nil {
		return *t, nil
	}
	return "", nil
}

// SegmentTranscript rebuilds a transcript from the indexed segments of a video,
// one segment per line in position order.
func (c *Client) SegmentTranscript(ctx context.Context, videoID string) (string, error) {
	results, err := surrealdb.Query[[]string](ctx, c.db, `
		SELECT VALUE text FROM segment
		WHERE video = type::record("video", $id)
		ORDER BY position
	`, map[string]any{"id": videoID})
	if err != nil {
		return "", fmt.Errorf("segment transcript: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return "", nil
	}
	return strings.Join((*results)[0].Result, "\n"), nil
}

// DeleteVideo deletes a video and its segments.
// Returns the number of deleted videos (0 if none found - idempotent).
func (c *Client) DeleteVideo(ctx context.Context, id string) (int, error) {
	sql := `
		DELETE segment WHERE video = type::record("video", $id);
		DELETE type::record("video", $id) RETURN BEFORE;
	`
	results, err := surrealdb.Query[[]models.Video](ctx, c.db, sql, map[string]any{"id": id})
	if err != nil {
		return 0, fmt.Errorf("delete video: %w", err)
	}

	if results == nil || len(*results) < 2 {
		return 0, nil
	}
	return len((*results)[1].Result), nil
}
