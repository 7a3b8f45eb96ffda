package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/form-sender/formrunner/internal/model"
)

// tenantFile mirrors the 2-sheet structure the upstream tenant-config loader
// emits: {client, targeting, targeting_id, client_id, active}. Field names
// match the source's save_client_config.py / transform_client_config
// verbatim so the on-disk format this re-implementation reads is the same
// shape a real export would produce.
type tenantFile struct {
	TargetingID int64          `yaml:"targeting_id"`
	ClientID    int64          `yaml:"client_id"`
	Active      bool           `yaml:"active"`
	Client      clientSheet    `yaml:"client"`
	Targeting   targetingSheet `yaml:"targeting"`
}

type clientSheet struct {
	CompanyName      string `yaml:"company_name"`
	CompanyNameKana  string `yaml:"company_name_kana"`
	FormSenderName   string `yaml:"form_sender_name"`
	LastName         string `yaml:"last_name"`
	FirstName        string `yaml:"first_name"`
	LastNameKana     string `yaml:"last_name_kana"`
	FirstNameKana    string `yaml:"first_name_kana"`
	LastNameHiragana string `yaml:"last_name_hiragana"`
	FirstNameHiragana string `yaml:"first_name_hiragana"`
	Position         string `yaml:"position"`
	Gender           string `yaml:"gender"`
	Email1           string `yaml:"email_1"`
	Email2           string `yaml:"email_2"`
	PostalCode1      string `yaml:"postal_code_1"`
	PostalCode2      string `yaml:"postal_code_2"`
	Address1         string `yaml:"address_1"`
	Address2         string `yaml:"address_2"`
	Address3         string `yaml:"address_3"`
	Address4         string `yaml:"address_4"`
	Address5         string `yaml:"address_5"`
	Phone1           string `yaml:"phone_1"`
	Phone2           string `yaml:"phone_2"`
	Phone3           string `yaml:"phone_3"`
	Department       string `yaml:"department"`
	WebsiteURL       string `yaml:"website_url"`
}

type targetingSheet struct {
	Subject        string `yaml:"subject"`
	Message        string `yaml:"message"`
	MaxDailySends  int    `yaml:"max_daily_sends"`
	SendStartTime  string `yaml:"send_start_time"`
	SendEndTime    string `yaml:"send_end_time"`
	SendDaysOfWeek []int  `yaml:"send_days_of_week"`
}

var clientRequiredFields = []struct {
	name  string
	value func(clientSheet) string
}{
	{"company_name", func(c clientSheet) string { return c.CompanyName }},
	{"company_name_kana", func(c clientSheet) string { return c.CompanyNameKana }},
	{"form_sender_name", func(c clientSheet) string { return c.FormSenderName }},
	{"last_name", func(c clientSheet) string { return c.LastName }},
	{"first_name", func(c clientSheet) string { return c.FirstName }},
	{"last_name_kana", func(c clientSheet) string { return c.LastNameKana }},
	{"first_name_kana", func(c clientSheet) string { return c.FirstNameKana }},
	{"last_name_hiragana", func(c clientSheet) string { return c.LastNameHiragana }},
	{"first_name_hiragana", func(c clientSheet) string { return c.FirstNameHiragana }},
	{"position", func(c clientSheet) string { return c.Position }},
	{"gender", func(c clientSheet) string { return c.Gender }},
	{"email_1", func(c clientSheet) string { return c.Email1 }},
	{"email_2", func(c clientSheet) string { return c.Email2 }},
	{"postal_code_1", func(c clientSheet) string { return c.PostalCode1 }},
	{"postal_code_2", func(c clientSheet) string { return c.PostalCode2 }},
	{"address_1", func(c clientSheet) string { return c.Address1 }},
	{"address_2", func(c clientSheet) string { return c.Address2 }},
	{"address_3", func(c clientSheet) string { return c.Address3 }},
	{"address_4", func(c clientSheet) string { return c.Address4 }},
	{"phone_1", func(c clientSheet) string { return c.Phone1 }},
	{"phone_2", func(c clientSheet) string { return c.Phone2 }},
	{"phone_3", func(c clientSheet) string { return c.Phone3 }},
}

var timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// ResolveTenantConfigPath resolves a `*`-glob pattern to the newest matching
// file (by mtime). A non-glob path is returned unchanged.
func ResolveTenantConfigPath(pathOrGlob string) (string, error) {
	matches, err := filepath.Glob(pathOrGlob)
	if err != nil {
		return "", fmt.Errorf("glob %s: %w", pathOrGlob, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no file matches %s", pathOrGlob)
	}
	if len(matches) == 1 {
		return matches[0], nil
	}
	type stamped struct {
		path string
		mod  time.Time
	}
	stat := make([]stamped, 0, len(matches))
	for _, m := range matches {
		info, err := statFile(m)
		if err != nil {
			continue
		}
		stat = append(stat, stamped{m, info})
	}
	if len(stat) == 0 {
		return "", fmt.Errorf("no readable file matches %s", pathOrGlob)
	}
	sort.Slice(stat, func(i, j int) bool { return stat[i].mod.After(stat[j].mod) })
	return stat[0].path, nil
}

// LoadTenantConfig reads, strictly validates, and converts a tenant config
// file into a model.Targeting, matching transform_client_config's
// validation rules verbatim (required fields per sheet, HH:MM format,
// 0-6 weekday integers, positive max_daily_sends) while generalizing the
// Python "2-sheet" terminology into Go struct names.
func LoadTenantConfig(path string, zone *time.Location) (model.Targeting, error) {
	data, err := readFile(path)
	if err != nil {
		return model.Targeting{}, fmt.Errorf("read tenant config %s: %w", path, err)
	}

	var tf tenantFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return model.Targeting{}, fmt.Errorf("parse tenant config %s: %w", path, err)
	}

	if err := validateTenantFile(tf); err != nil {
		return model.Targeting{}, err
	}

	return toTargeting(tf, zone), nil
}

func validateTenantFile(tf tenantFile) error {
	if tf.TargetingID == 0 {
		return fmt.Errorf("missing required field targeting_id")
	}
	if tf.ClientID == 0 {
		return fmt.Errorf("missing required field client_id")
	}

	var missing []string
	for _, f := range clientRequiredFields {
		if f.value(tf.Client) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("client section missing required fields: %v", missing)
	}

	t := tf.Targeting
	var missingT []string
	if t.Subject == "" {
		missingT = append(missingT, "subject")
	}
	if t.Message == "" {
		missingT = append(missingT, "message")
	}
	if t.MaxDailySends == 0 {
		missingT = append(missingT, "max_daily_sends")
	}
	if t.SendStartTime == "" {
		missingT = append(missingT, "send_start_time")
	}
	if t.SendEndTime == "" {
		missingT = append(missingT, "send_end_time")
	}
	if t.SendDaysOfWeek == nil {
		missingT = append(missingT, "send_days_of_week")
	}
	if len(missingT) > 0 {
		return fmt.Errorf("targeting section missing required fields: %v", missingT)
	}

	if t.MaxDailySends <= 0 {
		return fmt.Errorf("targeting.max_daily_sends must be a positive integer, got %d", t.MaxDailySends)
	}
	for _, d := range t.SendDaysOfWeek {
		if d < 0 || d > 6 {
			return fmt.Errorf("targeting.send_days_of_week must be integers 0-6, got %d", d)
		}
	}
	if !timePattern.MatchString(t.SendStartTime) {
		return fmt.Errorf("targeting.send_start_time must be 'HH:MM', got %q", t.SendStartTime)
	}
	if !timePattern.MatchString(t.SendEndTime) {
		return fmt.Errorf("targeting.send_end_time must be 'HH:MM', got %q", t.SendEndTime)
	}
	return nil
}

func toTargeting(tf tenantFile, zone *time.Location) model.Targeting {
	if zone == nil {
		zone = time.UTC
	}
	days := make(map[time.Weekday]bool, len(tf.Targeting.SendDaysOfWeek))
	for _, d := range tf.Targeting.SendDaysOfWeek {
		days[time.Weekday(d)] = true
	}

	c := tf.Client
	return model.Targeting{
		ID:       tf.TargetingID,
		ClientID: tf.ClientID,
		Active:   tf.Active,
		Subject:  tf.Targeting.Subject,
		Message:  tf.Targeting.Message,
		BusinessHours: model.BusinessHours{
			Days:  days,
			Start: tf.Targeting.SendStartTime,
			End:   tf.Targeting.SendEndTime,
			Zone:  zone,
		},
		MaxDailySends: tf.Targeting.MaxDailySends,
		Client: model.Client{
			ID:            tf.ClientID,
			LastName:      c.LastName,
			FirstName:     c.FirstName,
			FullName:      c.LastName + "　" + c.FirstName,
			LastKana:      c.LastNameKana,
			FirstKana:     c.FirstNameKana,
			FullKana:      c.LastNameKana + "　" + c.FirstNameKana,
			LastHiragana:  c.LastNameHiragana,
			FirstHiragana: c.FirstNameHiragana,
			FullHiragana:  c.LastNameHiragana + "　" + c.FirstNameHiragana,
			Email1:        c.Email1,
			Email2:        c.Email2,
			Email:         c.Email1 + "@" + c.Email2,
			Phone1:        c.Phone1,
			Phone2:        c.Phone2,
			Phone3:        c.Phone3,
			Phone:         c.Phone1 + c.Phone2 + c.Phone3,
			Postal1:       c.PostalCode1,
			Postal2:       c.PostalCode2,
			Address1:      c.Address1,
			Address2:      c.Address2,
			Address3:      c.Address3,
			Address4:      c.Address4,
			Address5:      c.Address5,
			Role:          c.Position,
			Gender:        c.Gender,
			CompanyName:   c.CompanyName,
		},
	}
}
