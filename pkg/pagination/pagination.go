package pagination

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/coverledger/pkg/errors"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100

	cursorVersion = 1
)

// Direction selects which side of the keyset a page walks toward.
type Direction int

const (
	Descending Direction = iota
	Ascending
)

// Key is the (created_at, id) position of a row in a keyset ordering.
type Key struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

type wireKey struct {
	V  int       `json:"v"`
	At time.Time `json:"at"`
	ID uuid.UUID `json:"id"`
}

// Clamp bounds a caller supplied page size.
func Clamp(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// Encode renders a key as an opaque url-safe token.
func Encode(key Key) string {
	raw, _ := json.Marshal(wireKey{V: cursorVersion, At: key.CreatedAt.UTC(), ID: key.ID})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode parses a token produced by Encode. An empty token yields nil.
func Decode(token string) (*Key, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cursor is not valid base64")
	}
	var decoded wireKey
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cursor is malformed")
	}
	if decoded.V != cursorVersion {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cursor version unsupported")
	}
	if decoded.ID == uuid.Nil || decoded.At.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cursor is incomplete")
	}
	return &Key{CreatedAt: decoded.At, ID: decoded.ID}, nil
}

// Scope applies the keyset predicate, ordering and fetch size to query.
// One extra row is requested so Cut can tell whether another page exists.
func Scope(query *gorm.DB, after *Key, dir Direction, limit int) *gorm.DB {
	cmp, order := "<", "created_at DESC, id DESC"
	if dir == Ascending {
		cmp, order = ">", "created_at ASC, id ASC"
	}
	if after != nil {
		query = query.Where("(created_at, id) "+cmp+" (?, ?)", after.CreatedAt, after.ID)
	}
	return query.Order(order).Limit(Clamp(limit) + 1)
}

// Cut trims rows fetched through Scope back to the page size and returns the
// key of the last row kept when more rows remain.
func Cut[T any](rows []T, limit int, keyOf func(T) Key) ([]T, *Key) {
	size := Clamp(limit)
	if len(rows) <= size {
		return rows, nil
	}
	rows = rows[:size]
	last := keyOf(rows[size-1])
	return rows, &last
}
