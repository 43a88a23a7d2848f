package models

// Accepted spellings per canonical field, in precedence order. The canonical key
// always comes first.
var textFields = []struct {
	field string
	keys  []string
	ref   func(*Fields) *string
}{
	{FieldName, []string{FieldName, "name", "nomeCompleto"}, func(f *Fields) *string { return &f.Name }},
	{FieldRegistrationNumber, []string{FieldRegistrationNumber, "registrationNumber", "registration"}, func(f *Fields) *string { return &f.RegistrationNumber }},
	{FieldPhoto, []string{FieldPhoto, "fotoUrl", "photo", "photoUrl"}, func(f *Fields) *string { return &f.Photo }},
	{FieldPavilion, []string{FieldPavilion, "pavilion"}, func(f *Fields) *string { return &f.Pavilion }},
	{FieldCell, []string{FieldCell, "cell"}, func(f *Fields) *string { return &f.Cell }},
	{FieldVisitDay, []string{FieldVisitDay, "visitDay", "visitingDay"}, func(f *Fields) *string { return &f.VisitDay }},
	{FieldFacilityID, []string{FieldFacilityID, "facilityId"}, func(f *Fields) *string { return &f.FacilityID }},
	{FieldFacilityName, []string{FieldFacilityName, "facilityName"}, func(f *Fields) *string { return &f.FacilityName }},
	{FieldEntryDate, []string{FieldEntryDate, "entryDate"}, func(f *Fields) *string { return &f.EntryDate }},
}

var flagFields = []struct {
	field string
	keys  []string
	ref   func(*Fields) *bool
}{
	{FieldTelevision, []string{FieldTelevision, "tv", "television"}, func(f *Fields) *bool { return &f.Television }},
	{FieldRadio, []string{FieldRadio}, func(f *Fields) *bool { return &f.Radio }},
	{FieldFan, []string{FieldFan, "fan"}, func(f *Fields) *bool { return &f.Fan }},
	{FieldMattress, []string{FieldMattress, "mattress"}, func(f *Fields) *bool { return &f.Mattress }},
}

var statusKeys = []string{FieldStatus, "situacao"}

// firstText returns the first non-empty text among keys.
func firstText(in Input, keys []string) (string, bool) {
	for _, k := range keys {
		if s, ok := textValue(in[k]); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// firstFlag returns the first value among keys that reads as a boolean.
func firstFlag(in Input, keys []string) (bool, bool) {
	for _, k := range keys {
		if b, ok := flagValue(in[k]); ok {
			return b, true
		}
	}
	return false, false
}

// Normalize maps in onto the canonical fields. Missing text is "", missing flags
// are false, and the status falls back to DefaultStatus unless it is an exact
// member of the closed set. Normalize is pure and idempotent through Input.
func Normalize(in Input) Fields {
	var f Fields
	for _, tf := range textFields {
		*tf.ref(&f), _ = firstText(in, tf.keys)
	}
	for _, ff := range flagFields {
		*ff.ref(&f), _ = firstFlag(in, ff.keys)
	}
	status, _ := firstText(in, statusKeys)
	f.Status = ParseStatus(status)
	return f
}

// NormalizePatch applies the Normalize rules to a partial update and keeps only
// what the caller actually supplied, keyed by canonical field name. Empty text
// and absent keys mean "leave unchanged"; flags are kept whenever one of their
// keys reads as a boolean. A supplied but unknown status is coerced to
// DefaultStatus, an empty one is dropped.
func NormalizePatch(in Input) map[string]any {
	patch := make(map[string]any)
	for _, tf := range textFields {
		if s, ok := firstText(in, tf.keys); ok {
			patch[tf.field] = s
		}
	}
	for _, ff := range flagFields {
		if b, ok := firstFlag(in, ff.keys); ok {
			patch[ff.field] = b
		}
	}
	if status, ok := firstText(in, statusKeys); ok {
		patch[FieldStatus] = string(ParseStatus(status))
	}
	return patch
}
