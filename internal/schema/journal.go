// Package schema defines the shape of an extracted journal record: the JSON
// Schema sent to the generation service as a structured-output constraint,
// local validation against it, and the canonical column order for tabular
// storage.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nbirkbak/journalist/internal/dataset"
)

// Version identifies the record shape; recorded in run metadata.
const Version = "1.0"

// BuildJournalJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. We pass this to the generation service as a structured output
// constraint and also use it locally to validate responses.
func BuildJournalJSONSchema() map[string]any {
	address := objectProp("The (historical) address in the central section of the page.", map[string]any{
		"street": stringProp("Street or institution name, the left-most part of the address."),
		"number": stringProp("Address number, right of the street name; an integer, sometimes with a letter."),
		"apt":    stringProp("Apartment floor, right of the number, often in smaller script."),
	}, []string{"street", "number"})

	age := objectProp("The age of the patient, written after the name.", map[string]any{
		"num":  map[string]any{"type": "number", "description": "Numeric age. Fractions like 11/12 denote a float value."},
		"unit": stringProp("Unit of the age, most often Aar, sometimes months or days."),
		"note": stringProp("Additional text after the age, mostly capturing uncertainty."),
	}, []string{"num", "unit"})

	patient := objectProp("Patient information around the center of the page.", map[string]any{
		"number":             stringProp("Patient number above the name; usually an integer, rarely with a letter."),
		"name":               stringProp("The name of the patient, beneath the patient number."),
		"household_position": stringProp("Occupation, relational, or marital status beneath the name; the entire string."),
		"age":                age,
		"address":            address,
	}, []string{"name", "household_position", "age", "address"})

	bottom := objectProp("Diagnosis and doctor's name in the bottom right corner.", map[string]any{
		"doctor_name": stringProp("Name of the physician conducting the journal, the last line bottom right."),
		"diagnosis":   stringProp("Diagnosis in the bottom right corner, usually above the doctor's name."),
	}, []string{"doctor_name", "diagnosis"})

	sektion := objectProp("Dissection diagnoses, present only when the patient is dead.", map[string]any{
		"number":    map[string]any{"type": "integer", "description": "Dissection number written after s.d. or similar, usually underlined."},
		"diagnoses": listProp("Medical diagnoses or symptoms, one item per row; ditto dashes repeat the words above."),
	}, []string{"number", "diagnoses"})

	diagnoses := objectProp("All diagnosis information on the page.", map[string]any{
		"top":      listProp("Diagnoses in the top right of the page, one item per row."),
		"bottom":   bottom,
		"sektion":  sektion,
		"severity": stringProp("Severity on the left side of the page, often a word with a < or > sign."),
	}, []string{"top", "bottom"})

	hospitalStay := objectProp("The patient's stay: ward, admission and discharge dates, length.", map[string]any{
		"admission_date": dateProp("Date after Indl or similar, the upper-most date. Year between 1879 and 1910."),
		"release_date":   dateProp("Date after Udskr or similar, beneath the admission date. Year between 1879 and 1910."),
		"stay_length":    stringProp("Beneath the release date; commonly days, sometimes hours."),
		"ward":           stringProp("Top-left corner; a letter+number combination or a word, sometimes roman numerals."),
		"note":           stringProp("Additional information after the length of stay, such as time of day."),
	}, []string{"admission_date", "release_date", "stay_length", "ward"})

	serum := objectProp("Anti-diphtheria serum treatment, top left corner when present.", map[string]any{
		"given": map[string]any{"type": "boolean", "description": "True when any serum information appears."},
		"doses": stringProp("Doses given, usually integers separated by +, sometimes roman numerals."),
		"type":  stringProp("Serum type, often a country abbreviation like Frs, germ, dan."),
	}, []string{"given"})

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"is_dead": map[string]any{"type": "boolean", "description": "True when a black cross (sometimes plus-like) is drawn on the page."},
			"is_fk":   map[string]any{"type": "boolean", "description": "True when F.K. or FK appears on the page."},
			"patient":       patient,
			"hospital_stay": hospitalStay,
			"diagnoses":     diagnoses,
			"serum":         serum,
		},
		"required": []string{"is_dead", "is_fk", "patient", "hospital_stay", "diagnoses", "serum"},
	}
}

// Columns is the canonical flattened column order for table datasets:
// the schema's dot-joined leaf paths in declaration order, then the
// bookkeeping fields.
func Columns() []string {
	return []string{
		"is_dead",
		"is_fk",
		"patient.number",
		"patient.name",
		"patient.household_position",
		"patient.age.num",
		"patient.age.unit",
		"patient.age.note",
		"patient.address.street",
		"patient.address.number",
		"patient.address.apt",
		"hospital_stay.admission_date",
		"hospital_stay.release_date",
		"hospital_stay.stay_length",
		"hospital_stay.ward",
		"hospital_stay.note",
		"diagnoses.top",
		"diagnoses.bottom.doctor_name",
		"diagnoses.bottom.diagnosis",
		"diagnoses.sektion.number",
		"diagnoses.sektion.diagnoses",
		"diagnoses.severity",
		"serum.given",
		"serum.doses",
		"serum.type",
		dataset.FieldGenerationSeconds,
		dataset.FieldFileName,
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func dateProp(desc string) map[string]any {
	return map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`, "description": desc}
}

func listProp(desc string) map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": desc}
}

func objectProp(desc string, props map[string]any, required []string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"description":          desc,
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}
