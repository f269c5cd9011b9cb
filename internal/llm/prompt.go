package llm

import (
	"fmt"
	"strings"
)

var categoryGuide = []struct{ name, desc string }{
	{"vaccine", "any vaccination or booster (rabies, DHPP, bordetella, lepto, lyme, influenza, FVRCP, FeLV)"},
	{"surgery", "surgical procedures including spay/neuter, mass removals and orthopedic repairs"},
	{"dental", "dental cleanings, scaling, extractions and oral exams under anesthesia"},
	{"medication", "prescriptions and dispensed drugs that are not parasite prevention"},
	{"bloodwork", "blood tests: CBC, chemistry panels, thyroid (T4), heartworm antigen on blood"},
	{"diagnostic", "non-blood diagnostics: fecal, urinalysis, radiographs, ultrasound, SNAP tests"},
	{"exam", "physical exams, wellness visits, rechecks and consultations"},
	{"parasite_prevention", "heartworm, flea and tick preventives (Heartgard, NexGard, Bravecto, Revolution)"},
	{"other", "any other dated clinical event"},
}

// BuildPrompt renders the fixed extraction prompt for one document.
func BuildPrompt(req Request) string {
	var sb strings.Builder

	sb.WriteString(`You are reading veterinary medical records for a single pet. Extract the data into the specified JSON structure.

1. "patient": the pet's name, species, breed, sex, date of birth and microchip number if present.
2. "vaccines": every vaccine administered, with the administration date and the next due date if shown.
3. "surgeries": every surgical procedure with its date and short notes.
4. "medications": every prescribed or dispensed medication with dosage and start/end dates.
5. "bloodwork": every blood panel with its date, a short summary of findings and whether any value was flagged abnormal.
6. "categorized_dates": one entry per dated clinical event in the record. Each entry has:
   - "date": the event date as YYYY-MM-DD
   - "category": exactly one of the categories below
   - "specific_type": the specific vaccine, procedure, test or product name as written (e.g. "Rabies 3yr", "SNAP 4Dx", "NexGard")
   - "source": the document label given below
   - "notes": optional short notes

Categories:
`)
	for _, c := range categoryGuide {
		fmt.Fprintf(&sb, "   - %s: %s\n", c.name, c.desc)
	}

	sb.WriteString(`
Rules for dates:
- Always write dates as YYYY-MM-DD. Records from the United States use MM/DD/YYYY.
- Do not invent dates. Leave an event out of "categorized_dates" if it has no date.
- Due dates and reminders are not events. Only record what was actually done.
- A single visit often contains several events (e.g. an exam, two vaccines and a heartworm test). Emit one categorized date for each.

Use null for any value that is not present in the record.
`)

	fmt.Fprintf(&sb, "\nDocument label: %s\n", req.Label)
	if req.InputMode == InputFile {
		sb.WriteString("The record is attached as a PDF.\n")
		return sb.String()
	}
	sb.WriteString("\nRecord text:\n")
	sb.WriteString(req.Text)
	sb.WriteString("\n")
	return sb.String()
}
