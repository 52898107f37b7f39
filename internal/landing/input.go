package landing

import (
	"net/url"
	"strings"

	"github.com/MrSnakeDoc/landing/internal/domain"
)

const maxFtpURLLength = 2048

var allowedURLSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ftp":   true,
	"ftps":  true,
	"sftp":  true,
}

// Input is the curator-supplied configuration for create, update and
// session previews.
type Input struct {
	Template string
	FtpURL   *string
	Status   string // "", "draft" or "published"
}

type validInput struct {
	template domain.Template
	ftpURL   *string
	status   *domain.Status // nil: keep current (update) or draft (create)
}

func (s *Service) validate(in Input) (validInput, error) {
	var (
		out  validInput
		verr domain.ValidationError
	)

	name := strings.TrimSpace(in.Template)
	switch t, ok := s.templates.Lookup(name); {
	case name == "":
		verr.Add("template", "is required")
	case !ok:
		verr.Add("template", "must be one of: "+templateNames(s.templates))
	default:
		out.template = t
	}

	if in.FtpURL != nil {
		raw := strings.TrimSpace(*in.FtpURL)
		if raw != "" {
			if msg := checkFtpURL(raw); msg != "" {
				verr.Add("ftp_url", msg)
			} else {
				out.ftpURL = &raw
			}
		}
	}
	if out.template.RequiresFtpURL && out.ftpURL == nil && verr.Fields["ftp_url"] == "" {
		verr.Add("ftp_url", "is required for template "+out.template.Name)
	}

	if in.Status != "" {
		st, err := domain.ParseStatus(in.Status)
		if err != nil {
			verr.Add("status", "must be draft or published")
		} else {
			out.status = &st
		}
	}

	if err := verr.OrNil(); err != nil {
		return validInput{}, err
	}
	return out, nil
}

func checkFtpURL(raw string) string {
	if len(raw) > maxFtpURLLength {
		return "is too long"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "must be a valid URL"
	}
	if !allowedURLSchemes[strings.ToLower(u.Scheme)] {
		return "must use http, https, ftp, ftps or sftp"
	}
	return ""
}

func templateNames(set TemplateSet) string {
	all := set.All()
	names := make([]string, 0, len(all))
	for _, t := range all {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}
