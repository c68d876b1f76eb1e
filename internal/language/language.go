package language

import (
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type entry struct {
	code2     string   // ISO 639-1 (2-letter)
	code3     string   // ISO 639-2/T (3-letter)
	alt3      string   // ISO 639-2/B alternate (e.g. "fre" vs "fra")
	tesseract string   // traineddata name, when it differs from code3
	display   string   // Human-readable name
	words     []string // Full word forms (e.g. "english")
}

var languages = []entry{
	{"en", "eng", "", "", "English", []string{"english"}},
	{"ru", "rus", "", "", "Russian", []string{"russian"}},
	{"uk", "ukr", "", "", "Ukrainian", []string{"ukrainian"}},
	{"es", "spa", "", "", "Spanish", []string{"spanish"}},
	{"fr", "fra", "fre", "", "French", []string{"french"}},
	{"de", "deu", "ger", "", "German", []string{"german"}},
	{"it", "ita", "", "", "Italian", []string{"italian"}},
	{"pt", "por", "", "", "Portuguese", []string{"portuguese"}},
	{"ja", "jpn", "", "", "Japanese", []string{"japanese"}},
	{"ko", "kor", "", "", "Korean", []string{"korean"}},
	{"zh", "zho", "chi", "chi_sim", "Chinese", []string{"chinese"}},
	{"ar", "ara", "", "", "Arabic", []string{"arabic"}},
	{"hi", "hin", "", "", "Hindi", []string{"hindi"}},
	{"nl", "nld", "dut", "", "Dutch", []string{"dutch"}},
	{"pl", "pol", "", "", "Polish", []string{"polish"}},
	{"sv", "swe", "", "", "Swedish", []string{"swedish"}},
	{"fi", "fin", "", "", "Finnish", []string{"finnish"}},
	{"tr", "tur", "", "", "Turkish", []string{"turkish"}},
}

// Index maps built at init time.
var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// parseBase resolves BCP 47 tags such as "ru-RU" or "pt_BR" to their base language.
func parseBase(code string) (xlang.Base, bool) {
	tag, err := xlang.Parse(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
	if err != nil {
		return xlang.Base{}, false
	}
	base, confidence := tag.Base()
	if confidence == xlang.No {
		return xlang.Base{}, false
	}
	return base, true
}

// ToISO2 converts any recognized language code, word, or BCP 47 tag to ISO 639-1.
// Returns empty string for unrecognized input.
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	if base, ok := parseBase(code); ok {
		if iso := base.String(); len(iso) == 2 {
			return iso
		}
	}
	return ""
}

// ToISO3 converts any recognized language code to ISO 639-2/T.
// Returns "und" for unrecognized input.
func ToISO3(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "und"
	}
	if e := lookup(code); e != nil {
		return e.code3
	}
	if base, ok := parseBase(code); ok {
		if iso := base.ISO3(); iso != "" {
			return iso
		}
	}
	return "und"
}

// ToTesseract maps a language, or a "+"-joined list of them, to tesseract
// traineddata names. Entries already in tesseract form ("chi_sim") pass through.
func ToTesseract(code string) string {
	parts := strings.Split(code, "+")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		name := part
		if !strings.Contains(part, "_") {
			if e := lookup(part); e != nil {
				name = e.code3
				if e.tesseract != "" {
					name = e.tesseract
				}
			} else if iso := ToISO3(part); iso != "und" {
				name = iso
			}
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return strings.Join(out, "+")
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	if base, ok := parseBase(code); ok {
		if name := display.English.Languages().Name(base); name != "" {
			return name
		}
	}
	return strings.ToUpper(strings.TrimSpace(code))
}
