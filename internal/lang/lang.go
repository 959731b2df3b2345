// Package lang holds the fixed set of UI languages and the phrases the
// voice assistant speaks or shows in each of them.
package lang

import (
	"fmt"
	"strings"
)

type Code string

const (
	English Code = "en"
	Hindi   Code = "hi"
	Telugu  Code = "te"
)

// All lists the supported languages. English is the fallback table and
// must stay first.
var All = []Code{English, Hindi, Telugu}

func Parse(s string) (Code, error) {
	c := Code(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range All {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unsupported language %q (supported: en, hi, te)", s)
}

func (c Code) Valid() bool {
	_, err := Parse(string(c))
	return err == nil
}

func (c Code) String() string { return string(c) }

// Phrases are the fixed utterances of the assistant in one language.
type Phrases struct {
	NothingHeard     string
	Opening          string // fmt template taking the localized screen label
	Sorry            string
	PermissionDenied string
	CouldNotListen   string
	Listening        string
}

var phrases = map[Code]Phrases{
	English: {
		NothingHeard:     "Nothing heard. Try again.",
		Opening:          "Opening %s.",
		Sorry:            "Sorry, I didn't understand. Please try again.",
		PermissionDenied: "Microphone permission denied. Please allow microphone access and try again.",
		CouldNotListen:   "Could not listen. Please try again.",
		Listening:        "Listening...",
	},
	Hindi: {
		NothingHeard:     "कुछ सुनाई नहीं दिया। फिर से कोशिश करें।",
		Opening:          "%s खोल रहे हैं।",
		Sorry:            "माफ़ कीजिए, मैं समझ नहीं पाया। कृपया फिर से कोशिश करें।",
		PermissionDenied: "माइक्रोफ़ोन की अनुमति नहीं मिली। कृपया अनुमति दें और फिर से कोशिश करें।",
		CouldNotListen:   "सुन नहीं पाया। कृपया फिर से कोशिश करें।",
		Listening:        "सुन रहा हूँ...",
	},
	Telugu: {
		NothingHeard:     "ఏమీ వినిపించలేదు. మళ్ళీ ప్రయత్నించండి.",
		Opening:          "%s తెరుస్తున్నాము.",
		Sorry:            "క్షమించండి, నాకు అర్థం కాలేదు. దయచేసి మళ్ళీ ప్రయత్నించండి.",
		PermissionDenied: "మైక్రోఫోన్ అనుమతి లేదు. దయచేసి అనుమతి ఇచ్చి మళ్ళీ ప్రయత్నించండి.",
		CouldNotListen:   "వినలేకపోయాను. దయచేసి మళ్ళీ ప్రయత్నించండి.",
		Listening:        "వింటున్నాను...",
	},
}

// For returns the phrases of c, falling back to English for unknown codes.
func For(c Code) Phrases {
	if p, ok := phrases[c]; ok {
		return p
	}
	return phrases[English]
}

func (p Phrases) OpeningFor(label string) string {
	return fmt.Sprintf(p.Opening, label)
}
