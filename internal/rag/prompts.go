package rag

// RefusalAnswer is the exact sentence the model must use when the context is
// insufficient. The structured validator also uses it as the fallback
// definition, so refusal stays a first-class, schema-valid answer.
const RefusalAnswer = "I do not know the answer based on the documents"

// unknownField replaces missing or mistyped string fields in structured mode.
const unknownField = "unknown"

const freeTextSystemPrompt = `You are a question-answering assistant.
You MUST use ONLY the provided CONTEXT to answer.

Rules:
- If the answer is not in the CONTEXT, say exactly: "` + RefusalAnswer + `"
- Do not guess, do not add outside knowledge.
- Provide citations at the end of each paragraph in the format: [source p.<page>].
- Do not invent citations.`

const structuredSystemPrompt = `You are a question-answering assistant.
You MUST use ONLY the provided CONTEXT to answer.

Respond with exactly one JSON object and nothing else:
{"definition": "...", "why_it_matters": "...", "components": ["..."], "cited_chunks": ["chunk-<id>"]}

Rules:
- If the answer is not in the CONTEXT, set "definition" exactly to: "` + RefusalAnswer + `"
- "components" lists at most 5 short strings.
- "cited_chunks" lists the chunk labels of the context blocks you used.
- Do not guess, do not add outside knowledge, do not invent chunk labels.`
