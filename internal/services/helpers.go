package services

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func normalisePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// jsonDocument marshals a settings-style map into the JSON column type.
func jsonDocument(doc map[string]any) (datatypes.JSON, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return datatypes.JSON(data), nil
}
