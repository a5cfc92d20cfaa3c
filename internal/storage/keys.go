// Package storage names and persists capture artifacts: source images, raw
// OCR dumps, extracted field JSON and completed declaration forms.
package storage

import (
	"fmt"
	"math/big"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/traveler-intake/constants"
)

const completedFormsRoot = "Images"

// Site identifies where a capture was taken.
type Site struct {
	Agency      string
	Country     string
	State       string
	AirportCode string
}

// KeyBuilder produces object keys under Root (e.g. "images").
type KeyBuilder struct {
	Root  string
	Site  Site
	NewID func() uuid.UUID
}

func NewKeyBuilder(root string, site Site) KeyBuilder {
	if root == "" {
		root = "images"
	}
	return KeyBuilder{Root: root, Site: site, NewID: uuid.New}
}

// ImageKey returns
// <root>/<agency>/<country>/<state>/<airport>/<date>/<doc_type>/<subtype>/<daypart>/img-<uuid>-<YYYYMMDD-HHMMSS-micro>.jpg.
// An empty date defaults to now as YYYYMMDD.
func (b KeyBuilder) ImageKey(date string, docType constants.DocumentType, subtype constants.Subtype, now time.Time) string {
	if date == "" {
		date = now.Format("20060102")
	}
	newID := b.NewID
	if newID == nil {
		newID = uuid.New
	}
	id := strings.ReplaceAll(newID().String(), "-", "")
	name := fmt.Sprintf("img-%s-%s.jpg", id, now.Format("20060102-150405.000000"))
	// Go cannot format "-" before fractional seconds; swap the separator in.
	name = strings.Replace(name, ".", "-", 1)
	return path.Join(
		b.Root, b.Site.Agency, b.Site.Country, b.Site.State, b.Site.AirportCode,
		date, string(docType), string(subtype), Daypart(now.Hour()), name,
	)
}

// Daypart buckets an hour of the day.
func Daypart(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 21:
		return "evening"
	default:
		return "night"
	}
}

// ConfirmationNumber returns <AIRPORT>-<yy>-<5 digits>, the digits being the
// last five of a random UUID read as a decimal integer.
func ConfirmationNumber(airport string, now time.Time, newID func() uuid.UUID) string {
	if newID == nil {
		newID = uuid.New
	}
	id := newID()
	digits := new(big.Int).SetBytes(id[:]).String()
	if len(digits) < 5 {
		digits = strings.Repeat("0", 5-len(digits)) + digits
	}
	return fmt.Sprintf("%s-%s-%s", strings.ToUpper(airport), now.Format("06"), digits[len(digits)-5:])
}

// CompletedFormDir is <base>/<agency>/<country>/<state>/<airport>/<YYYYMMDD>/completedformsjson.
func CompletedFormDir(base string, site Site, now time.Time) string {
	return filepath.Join(base, site.Agency, site.Country, site.State, site.AirportCode,
		now.Format("20060102"), "completedformsjson")
}

// CompletedFormKey maps a file under base onto its object key, prefixed with
// "Images/".
func CompletedFormKey(base, localPath string) (string, error) {
	rel, err := filepath.Rel(base, localPath)
	if err != nil {
		return "", fmt.Errorf("completed form key: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("completed form %s is outside %s", localPath, base)
	}
	return path.Join(completedFormsRoot, filepath.ToSlash(rel)), nil
}

// RawOCRPath is the sidecar holding {"text": ...} for a capture.
func RawOCRPath(capturePath string) string {
	return strings.TrimSuffix(capturePath, filepath.Ext(capturePath)) + "-ocr_raw.json"
}

// RawOCRKey is RawOCRPath for object keys.
func RawOCRKey(key string) string {
	return strings.TrimSuffix(key, path.Ext(key)) + "-ocr_raw.json"
}

// PassengerJSONPath is the sidecar holding extracted fields for a capture.
func PassengerJSONPath(capturePath string) string {
	return capturePath + ".passenger.json"
}
