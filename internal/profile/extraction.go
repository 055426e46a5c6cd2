package profile

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"mealmind/pkg/mealtypes"
)

// fencedBlock matches the first ```json fenced block in an LLM reply.
var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ParsedReply is the result of parsing a profile-collection LLM response:
// the extracted fields plus the conversational text meant for the user.
type ParsedReply struct {
	Extraction Extraction
	Response   string
}

// rawPayload mirrors the JSON contract the extraction prompt demands. Field
// values arrive as whatever the model produced, so every scalar is decoded
// leniently afterwards.
type rawPayload struct {
	ExtractedData map[string]json.RawMessage `json:"extracted_data"`
	Response      string                     `json:"conversation_response"`
}

// ParseReply extracts the structured block from an LLM reply. If no block is
// present or it fails to decode, it returns ErrMalformedExtraction along with
// the reply text stripped of any fence, so the caller can still show the
// conversational part and leave the draft untouched.
func ParseReply(text string) (ParsedReply, error) {
	m := fencedBlock.FindStringSubmatch(text)
	if m == nil {
		return ParsedReply{Response: strings.TrimSpace(text)}, mealtypes.ErrMalformedExtraction
	}

	var payload rawPayload
	if err := json.Unmarshal([]byte(m[1]), &payload); err != nil {
		return ParsedReply{Response: stripFence(text)}, mealtypes.ErrMalformedExtraction
	}

	parsed := ParsedReply{
		Extraction: decodeExtraction(payload.ExtractedData),
		Response:   strings.TrimSpace(payload.Response),
	}
	if parsed.Response == "" {
		parsed.Response = stripFence(text)
	}
	return parsed, nil
}

func stripFence(text string) string {
	return strings.TrimSpace(fencedBlock.ReplaceAllString(text, ""))
}

// decodeExtraction converts raw JSON field values into a typed extraction.
// Wrong-typed values, empty strings, and literal "null" strings are treated
// as absent rather than failing the whole block.
func decodeExtraction(fields map[string]json.RawMessage) Extraction {
	var ex Extraction
	if fields == nil {
		return ex
	}

	ex.Name = decodeString(fields["name"])
	ex.Age = decodeInt(fields["age"])
	ex.Height = decodeFloat(fields["height"])
	ex.Weight = decodeFloat(fields["weight"])
	ex.PrimaryCuisine = decodeString(fields["primary_cuisine"])
	ex.SecondaryCuisine = decodeString(fields["secondary_cuisine"])

	if raw, ok := fields["medical_conditions"]; ok {
		var conditions []mealtypes.MedicalCondition
		if err := json.Unmarshal(raw, &conditions); err == nil {
			ex.Conditions = conditions
		}
	}
	return ex
}

func decodeString(raw json.RawMessage) *string {
	if raw == nil {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}

func decodeInt(raw json.RawMessage) *int {
	f := decodeFloat(raw)
	if f == nil {
		return nil
	}
	v := int(*f)
	return &v
}

// decodeFloat accepts either a JSON number or a numeric string; the
// extraction prompt asks for numbers but models routinely quote them.
func decodeFloat(raw json.RawMessage) *float64 {
	if raw == nil || string(raw) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
