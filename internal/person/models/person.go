package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Canonical document field names.
const (
	FieldName               = "nome"
	FieldRegistrationNumber = "matricula"
	FieldPhoto              = "foto"
	FieldTelevision         = "televisao"
	FieldRadio              = "radio"
	FieldFan                = "ventilador"
	FieldMattress           = "colchao"
	FieldPavilion           = "pavilhao"
	FieldCell               = "cela"
	FieldVisitDay           = "diaVisita"
	FieldFacilityID         = "unidadeId"
	FieldFacilityName       = "unidadeNome"
	FieldEntryDate          = "dataEntrada"
	FieldStatus             = "status"
	FieldCreatedAt          = "createdAt"
)

// Input is a loosely typed person payload. Keys may follow the canonical
// Portuguese names or the older English ones.
type Input map[string]any

// Fields is the canonical, normalized content of a person record.
type Fields struct {
	Name               string `json:"nome"`
	RegistrationNumber string `json:"matricula"`
	Photo              string `json:"foto"`
	Television         bool   `json:"televisao"`
	Radio              bool   `json:"radio"`
	Fan                bool   `json:"ventilador"`
	Mattress           bool   `json:"colchao"`
	Pavilion           string `json:"pavilhao"`
	Cell               string `json:"cela"`
	VisitDay           string `json:"diaVisita"`
	FacilityID         string `json:"unidadeId"`
	FacilityName       string `json:"unidadeNome"`
	EntryDate          string `json:"dataEntrada"`
	Status             Status `json:"status"`
}

// Person is a stored record.
//
// Invariants:
//   - Status is always a member of the closed set
//   - CreatedAt is set once on creation and never written again
type Person struct {
	ID string `json:"id"`
	Fields
	CreatedAt time.Time `json:"createdAt"`
}

// IsHospitalized reports whether the person is away at a hospital and therefore
// excluded from location roll calls.
func (p Person) IsHospitalized() bool {
	return p.Status == StatusHospitalizado
}

// Input re-emits the fields under their canonical keys.
func (f Fields) Input() Input {
	in := make(Input, len(textFields)+len(flagFields)+1)
	for _, tf := range textFields {
		in[tf.field] = *tf.ref(&f)
	}
	for _, ff := range flagFields {
		in[ff.field] = *ff.ref(&f)
	}
	in[FieldStatus] = string(f.Status)
	return in
}

// textValue renders v as text. The bool reports whether v carried a value at all.
func textValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case Status:
		return string(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case bool:
		return strconv.FormatBool(t), true
	case time.Time:
		return t.UTC().Format(time.RFC3339), true
	default:
		return "", false
	}
}

// flagValue interprets v as a boolean. Values that cannot be read as a flag are
// treated as absent.
func flagValue(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "sim", "s", "yes":
			return true, true
		case "false", "0", "não", "nao", "n", "no":
			return false, true
		}
		return false, false
	case json.Number:
		f, err := t.Float64()
		return f != 0, err == nil
	case float64:
		return t != 0, true
	case int:
		return t != 0, true
	case int64:
		return t != 0, true
	default:
		return false, false
	}
}
