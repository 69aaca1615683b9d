package extraction

import (
	"fmt"
	"strings"
)

func buildClassifyPrompt(classifications []Classification, content string) string {
	var b strings.Builder
	b.WriteString("Classify the document below as exactly one of these types:\n")
	for _, c := range classifications {
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, c.Description)
	}
	b.WriteString("\nRespond with JSON: {\"document_type\": \"<type>\", \"confidence\": <0.0-1.0>}\n")
	if content != "" {
		b.WriteString("\nDocument:\n")
		b.WriteString(content)
	}
	return b.String()
}

func buildExtractPrompt(contract *Contract, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract the following fields from this %s document section. ", contract.Name)
	b.WriteString("Respond with a single JSON object keyed by field name. ")
	b.WriteString("Use null for fields not present in this section.\n\nFields:\n")
	for _, f := range contract.Fields {
		fmt.Fprintf(&b, "- %s (%s): %s\n", f.Name, f.Kind, f.Description)
	}
	if content != "" {
		b.WriteString("\nSection:\n")
		b.WriteString(content)
	}
	return b.String()
}
