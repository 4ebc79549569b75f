package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/stepline/dance_catalog/internal/models"
)

// Search runs a fuzzy multi_match over the move index and returns the total
// hit count plus one page of moves.
func Search(ctx context.Context, es *elasticsearch.Client, index, query string, from, size int) (int64, []models.Move, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "description", "style"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("encode search body: %w", err)
	}

	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, nil, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Move `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	moves := make([]models.Move, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		moves[i] = hit.Source
	}
	return r.Hits.Total.Value, moves, nil
}

// IndexMove upserts a move document. Callers treat indexing as best-effort.
func IndexMove(ctx context.Context, es *elasticsearch.Client, index string, move *models.Move) error {
	data, err := json.Marshal(move)
	if err != nil {
		return fmt.Errorf("encode move: %w", err)
	}

	res, err := es.Index(
		index,
		bytes.NewReader(data),
		es.Index.WithContext(ctx),
		es.Index.WithDocumentID(strconv.FormatUint(uint64(move.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("index move: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index move: %s", res.Status())
	}
	return nil
}

func DeleteMove(ctx context.Context, es *elasticsearch.Client, index string, moveID uint) error {
	res, err := es.Delete(
		index,
		strconv.FormatUint(uint64(moveID), 10),
		es.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete move: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete move: %s", res.Status())
	}
	return nil
}
