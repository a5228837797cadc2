package model

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Input is a Record as decoded from untrusted JSON. Pointer fields make a
// missing or null value distinguishable from zero so "required" can reject
// it. Categorical codes are not range-checked: unseen codes encode as the
// reference category.
type Input struct {
	Age      *float64 `json:"age" validate:"required,gte=0"`
	Sex      *int     `json:"sex" validate:"required,oneof=0 1"`
	CP       *int     `json:"cp" validate:"required"`
	Trestbps *float64 `json:"trestbps" validate:"required,gte=0"`
	Chol     *float64 `json:"chol" validate:"required,gte=0"`
	FBS      *int     `json:"fbs" validate:"required,oneof=0 1"`
	RestECG  *int     `json:"restecg" validate:"required"`
	Thalach  *float64 `json:"thalach" validate:"required,gte=0"`
	Exang    *int     `json:"exang" validate:"required,oneof=0 1"`
	Oldpeak  *float64 `json:"oldpeak" validate:"required"`
	Slope    *int     `json:"slope" validate:"required"`
	CA       *int     `json:"ca" validate:"required,gte=0"`
	Thal     *int     `json:"thal" validate:"required"`
}

var validate = NewValidator()

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate reports every missing or out-of-range field. The error is a
// validator.ValidationErrors.
func (in *Input) Validate() error {
	return validate.Struct(in)
}

// Record converts a validated input. Call Validate first.
func (in *Input) Record() Record {
	return Record{
		Age:      *in.Age,
		Sex:      *in.Sex,
		CP:       *in.CP,
		Trestbps: *in.Trestbps,
		Chol:     *in.Chol,
		FBS:      *in.FBS,
		RestECG:  *in.RestECG,
		Thalach:  *in.Thalach,
		Exang:    *in.Exang,
		Oldpeak:  *in.Oldpeak,
		Slope:    *in.Slope,
		CA:       *in.CA,
		Thal:     *in.Thal,
	}
}
