package datacite

import (
	"strings"

	"github.com/MrSnakeDoc/landing/internal/domain"
)

// JSON:API document accepted by PUT /dois/{doi}.
type document struct {
	Data data `json:"data"`
}

type data struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Attributes attributes `json:"attributes"`
}

type attributes struct {
	URL             string        `json:"url"`
	Titles          []title       `json:"titles"`
	Creators        []creator     `json:"creators"`
	Publisher       string        `json:"publisher,omitempty"`
	PublicationYear int           `json:"publicationYear,omitempty"`
	Types           types         `json:"types"`
	Descriptions    []description `json:"descriptions,omitempty"`
}

type title struct {
	Title string `json:"title"`
}

type creator struct {
	Name       string `json:"name"`
	NameType   string `json:"nameType,omitempty"`
	GivenName  string `json:"givenName,omitempty"`
	FamilyName string `json:"familyName,omitempty"`
}

type types struct {
	ResourceTypeGeneral string `json:"resourceTypeGeneral"`
}

type description struct {
	Description     string `json:"description"`
	DescriptionType string `json:"descriptionType"`
}

// errorDocument is the registry's error body, ex:
// {"errors":[{"source":"url","title":"Can't be blank"}]}
type errorDocument struct {
	Errors []struct {
		Source string `json:"source"`
		Title  string `json:"title"`
	} `json:"errors"`
}

func (e errorDocument) firstTitle() string {
	for _, item := range e.Errors {
		if t := strings.TrimSpace(item.Title); t != "" {
			return t
		}
	}
	return ""
}

func buildDocument(doi, url string, res *domain.Resource) document {
	creators := make([]creator, 0, len(res.Creators))
	for _, name := range res.Creators {
		creators = append(creators, newCreator(name))
	}

	resourceType := res.ResourceType
	if resourceType == "" {
		resourceType = "Dataset"
	}

	attrs := attributes{
		URL:             url,
		Titles:          []title{{Title: res.Title}},
		Creators:        creators,
		Publisher:       res.Publisher,
		PublicationYear: res.PublicationYear,
		Types:           types{ResourceTypeGeneral: resourceType},
	}
	if d := strings.TrimSpace(res.Description); d != "" {
		attrs.Descriptions = []description{{Description: d, DescriptionType: "Abstract"}}
	}

	return document{Data: data{ID: doi, Type: "dois", Attributes: attrs}}
}

// newCreator splits "Family, Given" into a personal name; anything else
// is kept as given.
func newCreator(name string) creator {
	name = strings.TrimSpace(name)
	family, given, ok := strings.Cut(name, ",")
	if !ok {
		return creator{Name: name}
	}
	family, given = strings.TrimSpace(family), strings.TrimSpace(given)
	if family == "" || given == "" {
		return creator{Name: name}
	}
	return creator{
		Name:       family + ", " + given,
		NameType:   "Personal",
		GivenName:  given,
		FamilyName: family,
	}
}
