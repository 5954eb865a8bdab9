package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/eggmart/eggmart/internal/apperr"
	"github.com/eggmart/eggmart/internal/models"
	"github.com/eggmart/eggmart/internal/util"
)

// Document is the product projection indexed for search. Prices are indexed
// as floats, like the API boundary.
type Document struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CategoryID  uint    `json:"category_id"`
	Price       float64 `json:"price"`
	Status      string  `json:"status"`
}

func DocumentFor(p *models.Product) Document {
	return Document{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CategoryID:  p.CategoryID,
		Price:       util.MoneyFloat(p.Price),
		Status:      p.Status,
	}
}

// Index upserts a product document. Best-effort: callers log failures and
// keep serving.
func Index(ctx context.Context, es *elasticsearch.Client, index string, p *models.Product) error {
	if es == nil {
		return nil
	}
	body, err := json.Marshal(DocumentFor(p))
	if err != nil {
		return err
	}
	res, err := es.Index(index, bytes.NewReader(body),
		es.Index.WithContext(ctx),
		es.Index.WithDocumentID(strconv.FormatUint(uint64(p.ID), 10)),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index product %d: %s", p.ID, res.Status())
	}
	return nil
}

func Remove(ctx context.Context, es *elasticsearch.Client, index string, productID uint) error {
	if es == nil {
		return nil
	}
	res, err := es.Delete(index, strconv.FormatUint(uint64(productID), 10),
		es.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

func Search(ctx context.Context, es *elasticsearch.Client, index, query string, from, size int) (int64, []Document, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, apperr.Wrap(apperr.Internal, "encode search body", err)
	}

	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, apperr.Wrap(apperr.Internal, "search request", err)
	}

	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, apperr.Newf(apperr.Internal, "search error: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, apperr.Wrap(apperr.Internal, "decode search response", err)
	}

	docs := make([]Document, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		docs[i] = hit.Source
	}
	return r.Hits.Total.Value, docs, nil
}
