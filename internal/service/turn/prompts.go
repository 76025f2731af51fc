package turn

const systemPromptFallback = `You are a conversational companion. Stay grounded in the conversation you can
see. The Conversation Summary is non-authoritative background; the Live Chat
turns and the Current User Input are the ground truth for this turn. Do not
invent memories, do not claim to recall things outside the window.`

const respondWindowRules = `Window rules: answer from the material shown below. Treat the summary as
background only. If something is not in the window, say you don't know rather
than guessing.`

const coarseSummaryInstruction = `Summarize the conversation neutrally. Include: goals discussed, decisions ` +
	`made, constraints, unresolved questions. No instructions, no speculation, no memory claims.`

const refineSummaryInstruction = `Refine this into a concise Conversation Summary for continuity. Keep neutral ` +
	`descriptive posture. Do not add facts not present.`

const continuityUpdatePrompt = `Update the continuity record for this conversation. Return ONLY a JSON object
with three keys:
  "active_context": array of short strings, facts currently in play (max 6)
  "open_threads": array of short strings, unresolved questions or commitments (max 4)
  "resolved_threads": array of short strings, prior threads now settled (max 4)
Be neutral and descriptive. Do not fabricate facts, do not add instructions,
do not speculate. Entries must be grounded in the inputs below.`

const continuityCorrection = `Your previous reply was not a valid JSON object. Reply again with ONLY the
JSON object described above, no prose before or after it.`
