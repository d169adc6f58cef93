package core

// prompts.go defines the prompts used by the simulated consultation and the
// question generator.  Keeping these prompts in a separate file makes them
// easy to tweak without touching the rest of the code.

const (
	// PatientFollowUpPrompt continues the conversation as the patient.  It
	// is filled with the initial complaint and the doctor's latest reply.
	PatientFollowUpPrompt = `As a patient with this initial concern: %s
Continue the conversation based on the doctor's last response:
%s`

	// DoctorReplyPrompt asks the model to answer as a doctor whose tone
	// follows the reference reply.  Arguments: reference reply, initial
	// complaint, role-labelled conversation history.
	DoctorReplyPrompt = `You are a doctor. Your answer's response style should be similar to this: %s
Patient's history: %s
Conversation history:
%s`

	// ResolutionPrompt is a yes/no classification of the doctor's latest
	// reply.  Arguments: initial complaint, latest doctor reply.
	ResolutionPrompt = `You are reviewing a simulated medical consultation.
Patient's initial concern: %s
Doctor's latest reply: %s

Does the doctor's latest reply give a specific remedy, concrete instructions the patient can follow, and avoid unnecessarily deferring the patient to an in-person consultation?
Answer with a single word: yes or no.`

	// AdvancedQuestionsPrompt produces reasoning-heavy questions for a
	// specialised model.  Arguments: count, count, chunk text.
	AdvancedQuestionsPrompt = `
You are given the following medical text. Please produce %d advanced individual
questions that require deeper reasoning or interpretation, encouraging a chain
of thought from a specialized reasoning model. Ensure each question is relevant
to the text and has practical value for someone seeking to understand it at a
high level. Return exactly %d questions, each on a new line, with no additional
explanation or numbering.

Medical Text:
"""%s"""

Questions:
`

	// SimpleQuestionsPrompt targets readers without a medical background.
	// Arguments: count, count, chunk text.
	SimpleQuestionsPrompt = `
You are given the following medical text. Please produce %d simple, multi-step
questions that require deeper reasoning or interpretation to understand the concept, encouraging a chain
of thought from a specialized reasoning model. Ensure each question is relevant
to the text and has practical value for someone from non-medical background seeking to understand it at a
high level. Return exactly %d questions, each on a new line, with no additional
explanation or numbering.

Medical Text:
"""%s"""

Questions:
`
)
