package prefill

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/traveler-intake/internal/common"
	"github.com/joseph-ayodele/traveler-intake/internal/storage"
)

// Declaration is a completed customs declaration form. Yes/no answers hold
// "Yes" or "No".
type Declaration struct {
	Surname        string `json:"surname"`
	GivenNames     string `json:"given_names"`
	Nationality    string `json:"nationality"`
	DateOfBirth    string `json:"date_of_birth"`
	Gender         string `json:"gender"`
	PassportNumber string `json:"passport_number"`
	Airline        string `json:"airline"`
	FlightNumber   string `json:"flight_number"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Purpose        string `json:"purpose"`

	AnimalsPlants             string `json:"animals_plants"`
	AnimalsPlantsDetails      string `json:"animals_plants_details,omitempty"`
	CommercialArticles        string `json:"commercial_articles"`
	CommercialArticlesDetails string `json:"commercial_articles_details,omitempty"`
	Currency                  string `json:"currency"`
	CurrencyAmount            string `json:"currency_amount,omitempty"`
	ProhibitedItems           string `json:"prohibited_items"`
	ProhibitedItemsDetails    string `json:"prohibited_items_details,omitempty"`

	Truthful           bool   `json:"truthful"`
	Signature          string `json:"signature"`
	DateSigned         string `json:"date_signed"`
	ConfirmationNumber string `json:"confirmation_number,omitempty"`
}

// FromPrefill copies the known keys of a merged mapping into a Declaration.
func FromPrefill(m map[string]any) Declaration {
	get := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	return Declaration{
		Surname:        get("surname"),
		GivenNames:     get("given_names"),
		Nationality:    get("nationality"),
		DateOfBirth:    get("date_of_birth"),
		Gender:         get("gender"),
		PassportNumber: get("passport_number"),
		Airline:        get("airline"),
		FlightNumber:   get("flight_number"),
		Phone:          get("phone"),
		Email:          get("email"),
		Purpose:        get("purpose"),
	}
}

// Apply overlays the traveler's answers on a prefilled form. Empty answer
// fields keep the prefilled value.
func (d Declaration) Apply(answers Declaration) Declaration {
	out := d
	overlay := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	overlay(&out.Surname, answers.Surname)
	overlay(&out.GivenNames, answers.GivenNames)
	overlay(&out.Nationality, answers.Nationality)
	overlay(&out.DateOfBirth, answers.DateOfBirth)
	overlay(&out.Gender, answers.Gender)
	overlay(&out.PassportNumber, answers.PassportNumber)
	overlay(&out.Airline, answers.Airline)
	overlay(&out.FlightNumber, answers.FlightNumber)
	overlay(&out.Phone, answers.Phone)
	overlay(&out.Email, answers.Email)
	overlay(&out.Purpose, answers.Purpose)
	overlay(&out.AnimalsPlants, answers.AnimalsPlants)
	overlay(&out.AnimalsPlantsDetails, answers.AnimalsPlantsDetails)
	overlay(&out.CommercialArticles, answers.CommercialArticles)
	overlay(&out.CommercialArticlesDetails, answers.CommercialArticlesDetails)
	overlay(&out.Currency, answers.Currency)
	overlay(&out.CurrencyAmount, answers.CurrencyAmount)
	overlay(&out.ProhibitedItems, answers.ProhibitedItems)
	overlay(&out.ProhibitedItemsDetails, answers.ProhibitedItemsDetails)
	overlay(&out.Signature, answers.Signature)
	overlay(&out.DateSigned, answers.DateSigned)
	out.Truthful = answers.Truthful
	return out
}

// Validate checks the form is complete enough to submit.
func (d Declaration) Validate() error {
	yesNo := common.OneOf("Yes", "No")
	v := common.NewValidator().
		Field("surname", d.Surname, common.Required).
		Field("given_names", d.GivenNames, common.Required).
		Field("nationality", d.Nationality, common.Required).
		Field("date_of_birth", d.DateOfBirth, common.Required, common.ISODate).
		Field("gender", d.Gender, common.Optional(common.OneOf("Male", "Female"))).
		Field("passport_number", d.PassportNumber, common.Required).
		Field("airline", d.Airline, common.Required).
		Field("flight_number", d.FlightNumber, common.Required).
		Field("animals_plants", d.AnimalsPlants, common.Required, yesNo).
		Field("commercial_articles", d.CommercialArticles, common.Required, yesNo).
		Field("currency", d.Currency, common.Required, yesNo).
		Field("prohibited_items", d.ProhibitedItems, common.Required, yesNo).
		Field("signature", d.Signature, common.Required).
		Field("date_signed", d.DateSigned, common.Optional(common.ISODate))
	if !d.Truthful {
		v.Add(common.ValidationError{Field: "truthful", Message: "declaration must be confirmed as truthful"})
	}
	return v.Error()
}

// Submission is where a declaration was written and stored.
type Submission struct {
	ConfirmationNumber string
	LocalPath          string
	Key                string
	URI                string
}

// Submitter files completed declarations under
// <base>/<agency>/<country>/<state>/<airport>/<YYYYMMDD>/completedformsjson.
type Submitter struct {
	base   string
	site   storage.Site
	store  storage.Uploader
	logger *slog.Logger
	now    func() time.Time
	newID  func() uuid.UUID
}

func NewSubmitter(base string, site storage.Site, store storage.Uploader, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{base: base, site: site, store: store, logger: logger, now: time.Now, newID: uuid.New}
}

// Submit validates d, stamps a confirmation number, writes the form and
// uploads it.
func (s *Submitter) Submit(ctx context.Context, d Declaration) (Submission, error) {
	now := s.now()
	if d.DateSigned == "" {
		d.DateSigned = now.Format("2006-01-02")
	}
	if err := d.Validate(); err != nil {
		return Submission{}, err
	}
	d.ConfirmationNumber = storage.ConfirmationNumber(s.site.AirportCode, now, s.newID)

	dir := storage.CompletedFormDir(s.base, s.site, now)
	local := filepath.Join(dir, "declaration_"+now.Format("20060102-150405")+".json")
	if err := storage.WriteJSON(local, d); err != nil {
		return Submission{}, err
	}
	key, err := storage.CompletedFormKey(s.base, local)
	if err != nil {
		return Submission{}, err
	}
	uri, err := s.store.Upload(ctx, local, key)
	if err != nil {
		return Submission{}, fmt.Errorf("upload declaration: %w", err)
	}

	s.logger.Info("declaration submitted", "confirmation", d.ConfirmationNumber, "path", local, "key", key)
	return Submission{ConfirmationNumber: d.ConfirmationNumber, LocalPath: local, Key: key, URI: uri}, nil
}
