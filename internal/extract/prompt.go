package extract

// DefaultPrompt is the instruction sent alongside each page image. The
// response shape itself is constrained by the JSON schema attached to the
// request, so the prompt focuses on transcription discipline.
const DefaultPrompt = `Context:
You are given a scanned page from a Danish hospital patient journal from the late 1800s.
Your task is to extract data from the content on the page.

Objective:
Fill each field of the response schema with the information found in the image.
If a field cannot be determined, omit it when optional or return an empty string.

Guidelines:
- Use only what is visible in the image.
- Do not infer or guess beyond the evidence on the page.
- Preserve spellings exactly as written, even if archaic or non-standard.
- If multiple values exist for a field, choose the most prominent or clearly stated one.
- Replace any newline characters within a field with a single space.`
