package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/matrimony-api/internal/model"
	"github.com/iliyamo/matrimony-api/internal/repository"
)

const (
	minAge       = 18
	minHeightCM  = 100
	maxHeightCM  = 250
	maxAboutLen  = 1000
	maxShortText = 64
	maxLongText  = 100
)

// fieldParser turns one JSON value into the value written to its column.
// A nil result clears the column.
type fieldParser func(field string, raw json.RawMessage, now time.Time) (interface{}, error)

// profileFields is the complete set of editable profile keys.
var profileFields = map[string]fieldParser{
	"first_name":    requiredText(maxNameLen),
	"last_name":     text(maxNameLen, true),
	"gender":        oneOf("male", "female", "other"),
	"date_of_birth": dateOfBirth,
	"religion":      text(maxShortText, false),
	"mother_tongue": text(maxShortText, false),
	"city":          text(maxLongText, false),
	"occupation":    text(maxLongText, false),
	"height_cm":     heightCM,
	"about":         text(maxAboutLen, false),
}

// ProfileService edits and reads public profiles.
type ProfileService struct {
	profiles ProfileStore
	now      func() time.Time
}

func NewProfileService(profiles ProfileStore) *ProfileService {
	return &ProfileService{profiles: profiles, now: time.Now}
}

// Get returns the profile of a visible user.
func (s *ProfileService) Get(ctx context.Context, userID uint64) (*model.Profile, error) {
	p, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	return p, err
}

// Update validates every key of body against the allow list and writes
// the parsed values.  Unknown keys fail the whole update.
func (s *ProfileService) Update(ctx context.Context, userID uint64, body map[string]json.RawMessage) (*model.Profile, error) {
	if len(body) == 0 {
		return nil, invalid("", "no fields to update")
	}
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := s.now().UTC()
	changes := make(map[string]interface{}, len(body))
	for _, k := range keys {
		parse, ok := profileFields[k]
		if !ok {
			return nil, invalid(k, "is not an editable field")
		}
		v, err := parse(k, body[k], now)
		if err != nil {
			return nil, err
		}
		changes[k] = v
	}
	if err := s.profiles.Update(ctx, userID, changes); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeString(field string, raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", invalid(field, "must be a string")
	}
	return strings.TrimSpace(s), nil
}

func requiredText(max int) fieldParser {
	return func(field string, raw json.RawMessage, _ time.Time) (interface{}, error) {
		if isNull(raw) {
			return nil, invalid(field, "cannot be empty")
		}
		s, err := decodeString(field, raw)
		if err != nil {
			return nil, err
		}
		if s == "" {
			return nil, invalid(field, "cannot be empty")
		}
		if utf8.RuneCountInString(s) > max {
			return nil, invalid(field, "must be at most %d characters", max)
		}
		return s, nil
	}
}

// text accepts a string up to max runes.  NOT NULL columns store "" for a
// cleared value, nullable ones store NULL.
func text(max int, notNull bool) fieldParser {
	return func(field string, raw json.RawMessage, _ time.Time) (interface{}, error) {
		if isNull(raw) {
			if notNull {
				return "", nil
			}
			return nil, nil
		}
		s, err := decodeString(field, raw)
		if err != nil {
			return nil, err
		}
		if utf8.RuneCountInString(s) > max {
			return nil, invalid(field, "must be at most %d characters", max)
		}
		if s == "" && !notNull {
			return nil, nil
		}
		return s, nil
	}
}

func oneOf(allowed ...string) fieldParser {
	return func(field string, raw json.RawMessage, _ time.Time) (interface{}, error) {
		if isNull(raw) {
			return nil, nil
		}
		s, err := decodeString(field, raw)
		if err != nil {
			return nil, err
		}
		s = strings.ToLower(s)
		for _, a := range allowed {
			if s == a {
				return s, nil
			}
		}
		return nil, invalid(field, "must be one of %s", strings.Join(allowed, ", "))
	}
}

func dateOfBirth(field string, raw json.RawMessage, now time.Time) (interface{}, error) {
	if isNull(raw) {
		return nil, nil
	}
	s, err := decodeString(field, raw)
	if err != nil {
		return nil, err
	}
	dob, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, invalid(field, "must be a date in YYYY-MM-DD format")
	}
	if dob.AddDate(minAge, 0, 0).After(now) {
		return nil, invalid(field, "must be at least %d years ago", minAge)
	}
	return dob, nil
}

func heightCM(field string, raw json.RawMessage, _ time.Time) (interface{}, error) {
	if isNull(raw) {
		return nil, nil
	}
	var h int
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, invalid(field, "must be a whole number")
	}
	if h < minHeightCM || h > maxHeightCM {
		return nil, invalid(field, "must be between %d and %d", minHeightCM, maxHeightCM)
	}
	return h, nil
}
