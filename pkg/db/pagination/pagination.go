package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
)

var ErrInvalidPageToken = errors.New("invalid_page_token")

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=25" binding:"omitempty,gte=1,lte=250"`
}

type Cursor struct {
	ID string `json:"id,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}

// AfterID decodes a page token into the last ID of the previous page. An empty
// token means the first page.
func AfterID(token string) (snowflake.ID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, nil
	}
	cursor, err := DecodeCursor(token)
	if err != nil {
		return 0, ErrInvalidPageToken
	}
	id, err := snowflake.ParseString(cursor.ID)
	if err != nil {
		return 0, ErrInvalidPageToken
	}
	return id, nil
}

// ClampSize bounds a requested page size to [1, max], defaulting to def.
func ClampSize(size, def, max int) int {
	if size <= 0 {
		size = def
	}
	if max > 0 && size > max {
		size = max
	}
	if size <= 0 {
		size = 1
	}
	return size
}

// Trim cuts a result fetched with limit+1 rows down to limit and builds the
// page info from the last kept row.
func Trim[T any](data []T, limit int, extractID func(T) snowflake.ID) ([]T, PageInfo) {
	if len(data) <= limit {
		return data, PageInfo{HasMore: false}
	}

	data = data[:limit]
	token, err := EncodeCursor(Cursor{ID: extractID(data[len(data)-1]).String()})
	if err != nil {
		return data, PageInfo{HasMore: true}
	}
	return data, PageInfo{NextPageToken: token, HasMore: true}
}
