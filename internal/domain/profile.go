package domain

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

// ProfileUpdate carries a partial profile edit. Nil fields are left as-is.
type ProfileUpdate struct {
	Name          *string
	Location      *string
	Bio           *string
	ProfilePhoto  *string
	SkillsOffered []string
	SkillsWanted  []string
	Availability  []string
	IsPublic      *bool

	SetSkillsOffered bool
	SetSkillsWanted  bool
	SetAvailability  bool
}

// Normalize trims text fields and de-duplicates the skill and
// availability lists, then validates the result.
func (p *ProfileUpdate) Normalize() error {
	fields := map[string]string{}

	if p.Name != nil {
		v := strings.TrimSpace(*p.Name)
		p.Name = &v
		if err := validateName(v); err != "" {
			fields["name"] = err
		}
	}
	trimMax := func(key string, ptr **string, max int) {
		if *ptr == nil {
			return
		}
		v := strings.TrimSpace(**ptr)
		*ptr = &v
		if utf8.RuneCountInString(v) > max {
			fields[key] = "too long"
		}
	}
	trimMax("location", &p.Location, 100)
	trimMax("bio", &p.Bio, 500)
	trimMax("profile_photo", &p.ProfilePhoto, 500)

	if p.SetSkillsOffered {
		out, msg := normalizeSkills(p.SkillsOffered)
		p.SkillsOffered = out
		if msg != "" {
			fields["skills_offered"] = msg
		}
	}
	if p.SetSkillsWanted {
		out, msg := normalizeSkills(p.SkillsWanted)
		p.SkillsWanted = out
		if msg != "" {
			fields["skills_wanted"] = msg
		}
	}
	if p.SetAvailability {
		out := make([]string, 0, len(p.Availability))
		seen := map[string]bool{}
		for _, a := range p.Availability {
			a = strings.ToLower(strings.TrimSpace(a))
			if a == "" || seen[a] {
				continue
			}
			if !Availability(a).Valid() {
				fields["availability"] = "invalid value: " + a
				break
			}
			seen[a] = true
			out = append(out, a)
		}
		p.Availability = out
	}

	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}

func normalizeSkills(in []string) ([]string, string) {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		if utf8.RuneCountInString(s) > MaxSkillLength {
			return nil, "each skill must be 50 characters or less"
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) > MaxSkills {
		return nil, "at most 20 skills"
	}
	return out, ""
}

func validateName(name string) string {
	n := utf8.RuneCountInString(name)
	if n < 2 || n > 50 {
		return "must be 2-50 characters"
	}
	for _, r := range name {
		if r < 32 {
			return "contains invalid characters"
		}
	}
	return ""
}

type Registration struct {
	Email    string
	Name     string
	Password string
}

func (r *Registration) Validate() error {
	r.Email = NormalizeEmail(r.Email)
	r.Name = strings.TrimSpace(r.Name)

	fields := map[string]string{}
	if r.Email == "" {
		fields["email"] = "required"
	} else if _, err := mail.ParseAddress(r.Email); err != nil {
		fields["email"] = "invalid email address"
	}
	if msg := validateName(r.Name); msg != "" {
		fields["name"] = msg
	}
	if len(r.Password) < 8 {
		fields["password"] = "must be at least 8 characters"
	}
	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}

func NormalizeEmail(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}
