package registry

import "github.com/Gobusters/ectolinq"

// TypeSummary is the operator-facing view of a resource type.
type TypeSummary struct {
	Name      string            `json:"name" yaml:"name"`
	APIName   string            `json:"api_name" yaml:"api_name"`
	Plural    string            `json:"plural" yaml:"plural"`
	TypeCode  int               `json:"type_code" yaml:"type_code"`
	Table     string            `json:"table" yaml:"table"`
	Template  string            `json:"template" yaml:"template"`
	HasImage  bool              `json:"has_image" yaml:"has_image"`
	Columns   []string          `json:"columns" yaml:"columns"`
	Relations []RelationSummary `json:"relations,omitempty" yaml:"relations,omitempty"`
}

type RelationSummary struct {
	Name      string `json:"name" yaml:"name"`
	JoinTable string `json:"join_table" yaml:"join_table"`
	OtherType string `json:"other_type" yaml:"other_type"`
}

func (d *ResourceTypeDef) Summary() TypeSummary {
	return TypeSummary{
		Name:     d.Name,
		APIName:  d.APIName,
		Plural:   d.Plural,
		TypeCode: d.TypeCode,
		Table:    d.TableName,
		Template: d.TemplateName,
		HasImage: d.HasImage,
		Columns:  d.ColumnNames(),
		Relations: ectolinq.Map(d.Relations, func(r RelationDef) RelationSummary {
			return RelationSummary{Name: r.Name, JoinTable: r.JoinTable, OtherType: r.OtherType}
		}),
	}
}

// Summaries lists every type in registration order.
func (r *Registry) Summaries() []TypeSummary {
	return ectolinq.Map(r.defs, func(d *ResourceTypeDef) TypeSummary { return d.Summary() })
}
