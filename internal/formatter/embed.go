package formatter

const (
	// EmbedColor accent color of notification embeds
	EmbedColor = 0x5865F2
	// EmbedTitle title of notification embeds
	EmbedTitle = "📬 New mail"

	maxDescriptionLength = 4096
	maxFieldLength       = 1024
)

// Payload webhook request body
type Payload struct {
	Embeds []Embed `json:"embeds"`
}

// Embed rich message block
type Embed struct {
	Title       string       `json:"title"`
	Color       int          `json:"color"`
	Description string       `json:"description,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

// EmbedField labelled value inside an embed
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// BuildPayload wraps a rendered body into a single embed. An empty body
// produces labelled fields instead of a description.
func BuildPayload(body string, vars Vars) *Payload {
	embed := Embed{
		Title: EmbedTitle,
		Color: EmbedColor,
	}

	if body != "" {
		embed.Description = truncate(body, maxDescriptionLength)
	} else {
		embed.Fields = []EmbedField{
			{Name: "Account", Value: truncate(vars.AccountName, maxFieldLength), Inline: true},
			{Name: "Rule", Value: truncate(vars.RuleName, maxFieldLength), Inline: true},
			{Name: "From", Value: truncate(vars.FromAddress, maxFieldLength)},
			{Name: "Subject", Value: truncate(vars.Subject, maxFieldLength)},
		}
	}

	return &Payload{Embeds: []Embed{embed}}
}

// truncate truncates text to maxLen characters
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
