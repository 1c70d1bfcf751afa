// Package profile is the Candidate Profile Data Store (§3, §6):
// a read-only, semantically-pathed document loaded once at session
// start and shared immutably across components.
package profile

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Profile is the parsed candidate document. Field tags mirror the
// top-level sections named in §6; missing sections/fields are tolerated
// and simply resolve to zero values.
type Profile struct {
	BasicInfo struct {
		FirstName string `yaml:"first_name"`
		LastName  string `yaml:"last_name"`
		FullName  string `yaml:"full_name"`
		Email     string `yaml:"email"`
		Phone     string `yaml:"phone"`
		LinkedIn  string `yaml:"linkedin"`
		GitHub    string `yaml:"github"`
		Portfolio string `yaml:"portfolio"`
		Website   string `yaml:"website"`
	} `yaml:"basic_info"`

	Location struct {
		Country string `yaml:"country"`
		State   string `yaml:"state"`
		City    string `yaml:"city"`
		Address string `yaml:"address"`
		ZipCode string `yaml:"zip_code"`
	} `yaml:"location"`

	Education struct {
		University      string `yaml:"university"`
		Degree          string `yaml:"degree"`
		Major           string `yaml:"major"`
		GraduationYear  string `yaml:"graduation_year"`
		GraduationMonth string `yaml:"graduation_month"`
		GPA             string `yaml:"gpa"`
	} `yaml:"education"`

	WorkInfo struct {
		CurrentCompany       string `yaml:"current_company"`
		CurrentTitle         string `yaml:"current_title"`
		YearsExperience      string `yaml:"years_experience"`
		WillingToRelocate    bool   `yaml:"willing_to_relocate"`
		RemoteWorkPreference bool   `yaml:"remote_work_preference"`
	} `yaml:"work_info"`

	LegalStatus struct {
		WorkAuthorization  string `yaml:"work_authorization"`
		RequireSponsorship string `yaml:"require_sponsorship"`
		VisaStatus         string `yaml:"visa_status"`
	} `yaml:"legal_status"`

	Preferences struct {
		SalaryExpectation string `yaml:"salary_expectation"`
		StartDate         string `yaml:"start_date"`
		JobType           string `yaml:"job_type"`
		RemotePreference  string `yaml:"remote_preference"`
	} `yaml:"preferences"`

	Files struct {
		Resume struct {
			FilePath string `yaml:"file_path"`
		} `yaml:"resume"`
		CoverLetter struct {
			FilePath string `yaml:"file_path"`
		} `yaml:"cover_letter"`
	} `yaml:"files"`
}

// Load parses a candidate profile document from path. The result is
// immutable for the lifetime of the session (§3, §5).
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("profile: parse %s: %w", path, err)
	}
	return &p, nil
}

// resolver looks up one semantic path against a *Profile, returning the
// raw (pre-normalization) value and whether the path is recognized.
type resolver func(*Profile) (string, bool)

// paths enumerates every semantic path §6 names. Boolean fields are
// rendered through strconv so Get always returns a string, with final
// Yes/No normalization applied by Get.
var paths = map[string]resolver{
	"basic_info.first_name": nonEmpty(func(p *Profile) string { return p.BasicInfo.FirstName }),
	"basic_info.last_name":  nonEmpty(func(p *Profile) string { return p.BasicInfo.LastName }),
	"basic_info.full_name":  nonEmpty(func(p *Profile) string { return p.BasicInfo.FullName }),
	"basic_info.email":      nonEmpty(func(p *Profile) string { return p.BasicInfo.Email }),
	"basic_info.phone":      nonEmpty(func(p *Profile) string { return p.BasicInfo.Phone }),
	"basic_info.linkedin":   nonEmpty(func(p *Profile) string { return p.BasicInfo.LinkedIn }),
	"basic_info.github":     nonEmpty(func(p *Profile) string { return p.BasicInfo.GitHub }),
	"basic_info.portfolio":  nonEmpty(func(p *Profile) string { return p.BasicInfo.Portfolio }),
	"basic_info.website":    nonEmpty(func(p *Profile) string { return p.BasicInfo.Website }),

	"location.country":  nonEmpty(func(p *Profile) string { return p.Location.Country }),
	"location.state":    nonEmpty(func(p *Profile) string { return p.Location.State }),
	"location.city":     nonEmpty(func(p *Profile) string { return p.Location.City }),
	"location.address":  nonEmpty(func(p *Profile) string { return p.Location.Address }),
	"location.zip_code": nonEmpty(func(p *Profile) string { return p.Location.ZipCode }),

	"education.university":       nonEmpty(func(p *Profile) string { return p.Education.University }),
	"education.degree":           nonEmpty(func(p *Profile) string { return p.Education.Degree }),
	"education.major":            nonEmpty(func(p *Profile) string { return p.Education.Major }),
	"education.graduation_year":  nonEmpty(func(p *Profile) string { return p.Education.GraduationYear }),
	"education.graduation_month": nonEmpty(func(p *Profile) string { return p.Education.GraduationMonth }),
	"education.gpa":              nonEmpty(func(p *Profile) string { return p.Education.GPA }),

	"work_info.current_company":  nonEmpty(func(p *Profile) string { return p.WorkInfo.CurrentCompany }),
	"work_info.current_title":    nonEmpty(func(p *Profile) string { return p.WorkInfo.CurrentTitle }),
	"work_info.years_experience": nonEmpty(func(p *Profile) string { return p.WorkInfo.YearsExperience }),
	"work_info.willing_to_relocate": func(p *Profile) (string, bool) {
		return strconv.FormatBool(p.WorkInfo.WillingToRelocate), true
	},
	"work_info.remote_work_preference": func(p *Profile) (string, bool) {
		return strconv.FormatBool(p.WorkInfo.RemoteWorkPreference), true
	},

	"legal_status.work_authorization":  nonEmpty(func(p *Profile) string { return p.LegalStatus.WorkAuthorization }),
	"legal_status.require_sponsorship": nonEmpty(func(p *Profile) string { return p.LegalStatus.RequireSponsorship }),
	"legal_status.visa_status":         nonEmpty(func(p *Profile) string { return p.LegalStatus.VisaStatus }),

	"preferences.salary_expectation": nonEmpty(func(p *Profile) string { return p.Preferences.SalaryExpectation }),
	"preferences.start_date":         nonEmpty(func(p *Profile) string { return p.Preferences.StartDate }),
	"preferences.job_type":           nonEmpty(func(p *Profile) string { return p.Preferences.JobType }),
	"preferences.remote_preference":  nonEmpty(func(p *Profile) string { return p.Preferences.RemotePreference }),

	"files.resume.file_path":       nonEmpty(func(p *Profile) string { return p.Files.Resume.FilePath }),
	"files.cover_letter.file_path": nonEmpty(func(p *Profile) string { return p.Files.CoverLetter.FilePath }),
}

func nonEmpty(f func(*Profile) string) resolver {
	return func(p *Profile) (string, bool) {
		v := f(p)
		return v, v != ""
	}
}

// normalizers names the paths that get value normalization applied
// on read (§3): phone, salary, booleans, degree vocabulary.
var normalizers = map[string]func(string) string{
	"basic_info.phone":                NormalizePhone,
	"preferences.salary_expectation":  NormalizeSalary,
	"work_info.willing_to_relocate":   NormalizeBoolString,
	"work_info.remote_work_preference": NormalizeBoolString,
	"legal_status.work_authorization":  NormalizeBoolString,
	"legal_status.require_sponsorship": NormalizeBoolString,
	"education.degree":                 NormalizeDegree,
}

// Get resolves a dotted semantic path to its normalized string value.
// Unrecognized or empty paths return ("", false) so the Field Mapper can
// skip them (§3, §6).
func (p *Profile) Get(path string) (string, bool) {
	resolve, ok := paths[path]
	if !ok {
		return "", false
	}
	raw, ok := resolve(p)
	if !ok {
		return "", false
	}
	if norm, ok := normalizers[path]; ok {
		return norm(raw), true
	}
	return raw, true
}

// Paths returns every semantic path §6 names, for callers that want to
// project the whole profile (e.g. the Field Mapper's prompt context).
func Paths() []string {
	out := make([]string, 0, len(paths))
	for k := range paths {
		out = append(out, k)
	}
	return out
}

// Projection returns every non-empty semantic path mapped to its
// normalized value. The Field Mapper's LLM prompt does not include it;
// that prompt lists only the path names from Paths.
func (p *Profile) Projection() map[string]string {
	out := make(map[string]string)
	for path := range paths {
		if v, ok := p.Get(path); ok {
			out[path] = v
		}
	}
	return out
}
