package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultEpsilon is the perturbation strength a fresh page starts with.
const DefaultEpsilon = 0.1

// epsilonSteps is the number of slider steps per unit (step 0.01).
const epsilonSteps = 100

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ClampEpsilon pins v to [0, 1] and snaps it to the 0.01 grid of the
// range control, which also absorbs float drift such as 0.1+0.2.
func ClampEpsilon(v float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 1
	}
	return math.Round(v*epsilonSteps) / epsilonSteps
}

// FormatEpsilon renders epsilon the way it goes on the wire: the shortest
// decimal that round-trips, e.g. 0.07 -> "0.07".
func FormatEpsilon(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// AttackRequest is one submission to the attack service.
type AttackRequest struct {
	Filename    string
	ContentType string
	Image       []byte
	Epsilon     float64
}

// Identifier is a class prediction. The attack service sends it either as
// a JSON string or as a number; both decode to the decimal text.
type Identifier string

func (id *Identifier) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = Identifier(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("prediction must be a string or a number, got %s", data)
	}
	*id = Identifier(n.String())
	return nil
}

// AttackResponse is the JSON body returned by POST /attack.
type AttackResponse struct {
	AttackSuccess          *bool      `json:"attack_success" validate:"required"`
	CleanPrediction        Identifier `json:"clean_prediction" validate:"required"`
	CleanLabel             string     `json:"clean_label"`
	AdversarialPrediction  Identifier `json:"adversarial_prediction" validate:"required"`
	AdversarialLabel       string     `json:"adversarial_label"`
	CleanImageBase64       string     `json:"clean_image_base64" validate:"required,base64"`
	AdversarialImageBase64 string     `json:"adversarial_image_base64" validate:"required,base64"`
	Epsilon                *float64   `json:"epsilon,omitempty"`
}

// ValidationError lists the response fields that were missing or malformed.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid attack response: missing or malformed " + strings.Join(e.Fields, ", ")
}

// Validate rejects a response that cannot be displayed.
func (r *AttackResponse) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &ValidationError{Fields: fields}
}

// Result converts a validated response into its display form. epsilon is
// the submitted value, used when the service does not echo one back.
func (r *AttackResponse) Result(epsilon float64) *AttackResult {
	res := &AttackResult{
		CleanPrediction:        string(r.CleanPrediction),
		CleanLabel:             r.CleanLabel,
		AdversarialPrediction:  string(r.AdversarialPrediction),
		AdversarialLabel:       r.AdversarialLabel,
		CleanImageBase64:       r.CleanImageBase64,
		AdversarialImageBase64: r.AdversarialImageBase64,
		Epsilon:                epsilon,
	}
	if r.AttackSuccess != nil {
		res.AttackSuccess = *r.AttackSuccess
	}
	if r.Epsilon != nil {
		res.Epsilon = *r.Epsilon
	}
	return res
}

// AttackResult is a validated attack outcome.
type AttackResult struct {
	AttackSuccess          bool    `json:"attack_success"`
	CleanPrediction        string  `json:"clean_prediction"`
	CleanLabel             string  `json:"clean_label,omitempty"`
	AdversarialPrediction  string  `json:"adversarial_prediction"`
	AdversarialLabel       string  `json:"adversarial_label,omitempty"`
	CleanImageBase64       string  `json:"clean_image_base64"`
	AdversarialImageBase64 string  `json:"adversarial_image_base64"`
	Epsilon                float64 `json:"epsilon"`
}

// UploadResponse wraps a successful attack for the JSON route.
type UploadResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Data    *AttackResult `json:"data,omitempty"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
