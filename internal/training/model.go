package training

import (
	"errors"
	"time"
)

// DataType labels what kind of organization-authored material an entry is.
type DataType string

const (
	TypeSalesScript           DataType = "sales_script"
	TypeObjectionHandling     DataType = "objection_handling"
	TypeQualificationCriteria DataType = "qualification_criteria"
	TypeSOP                   DataType = "sop"
	TypeBusinessInfo          DataType = "business_info"
)

// PromptOrder is the fixed order in which data types are rendered.
var PromptOrder = []DataType{
	TypeBusinessInfo,
	TypeSalesScript,
	TypeQualificationCriteria,
	TypeObjectionHandling,
	TypeSOP,
}

// Valid reports whether t is a known data type.
func (t DataType) Valid() bool {
	for _, known := range PromptOrder {
		if t == known {
			return true
		}
	}
	return false
}

// Label is the heading used when the type is rendered into a prompt.
func (t DataType) Label() string {
	switch t {
	case TypeSalesScript:
		return "Sales Script"
	case TypeObjectionHandling:
		return "Objection Handling"
	case TypeQualificationCriteria:
		return "Qualification Criteria"
	case TypeSOP:
		return "Standard Operating Procedures"
	case TypeBusinessInfo:
		return "Business Information"
	default:
		return string(t)
	}
}

var (
	ErrEntryNotFound   = errors.New("training entry not found")
	ErrInvalidDataType = errors.New("invalid training data type")
	ErrEmptyContent    = errors.New("training content is required")
)

// Entry is one piece of training material. Updates bump Version; only
// active entries feed prompts.
type Entry struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"organization_id"`
	DataType  DataType  `json:"data_type"`
	Content   string    `json:"content"`
	IsActive  bool      `json:"is_active"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
