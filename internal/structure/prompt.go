package structure

// systemInstruction is the fixed instruction for the structuring model. The
// strict response schema does the heavy lifting; the instruction explains the
// fields and pins the mood vocabulary.
const systemInstruction = `
Take an audio transcription of a dream spoken in natural, everyday language and transform it into a structured JSON object.

Ensure the transcription is formatted and punctuated correctly, and extract the relevant details as required.

# Steps

1. **Listen and Transcribe**: Input the audio transcription, which is in normal, everyday speech. Ensure to format and punctuate the transcription correctly.

2. **Analyze the Content**:
   - Identify a suitable title for the dream based on significant themes or events.
   - Determine relevant tags by identifying main elements or motifs present in the dream.
   - Assess the mood conveyed in the dream from the transcript, selecting from the provided list: "happy," "anxious," "neutral," "excited," "sad," "curious," or "frustrated."
   - Summarize the dream's core story or occurrence in a concise manner.
   - Extract a list of keywords that capture crucial aspects of the dream.

3. **Construct JSON Object**: Use the analyzed data to form a JSON object as specified in the format.

# Output Format

Produce a JSON object structured as follows:

{
  "title": "string - title of the dream",
  "transcript": "string - formatted punctuated transcription of what was said",
  "tags": ["related", "tags", "in", "the", "dream"],
  "mood": "mood of the dream",
  "summary": "string - summary of the dream",
  "keywords": ["keywords", "related", "to", "dream"]
}

# Notes

- Consider potential transcription errors due to the casual and spontaneous nature of dream recounting.
- The title and tags should effectively encapsulate the essence of the dream.
- When unsure, lean towards more general interpretations for mood and summary.
`

// responseFormat is the strict JSON schema attached to every request. All
// six fields are required and no additional properties are allowed, so a
// well-behaved model cannot return a partial draft.
var responseFormat = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   "dream_schema",
		"strict": true,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "Title of the dream.",
				},
				"transcript": map[string]any{
					"type":        "string",
					"description": "Formatted punctuated transcription of what was said.",
				},
				"tags": map[string]any{
					"type":        "array",
					"description": "Related tags in the dream.",
					"items":       map[string]any{"type": "string"},
				},
				"mood": map[string]any{
					"type":        "string",
					"description": "Mood of the dream.",
				},
				"summary": map[string]any{
					"type":        "string",
					"description": "Summary of the dream.",
				},
				"keywords": map[string]any{
					"type":        "array",
					"description": "Keywords related to the dream.",
					"items":       map[string]any{"type": "string"},
				},
			},
			"required":             []string{"title", "transcript", "tags", "mood", "summary", "keywords"},
			"additionalProperties": false,
		},
	},
}
