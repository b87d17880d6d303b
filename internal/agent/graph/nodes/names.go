package nodes

// Node keys of the orchestrator graph.
const (
	NodeRouteStart          = "route_start"
	NodeInterruptDetector   = "interrupt_detector"
	NodeIntentRouter        = "intent_router"
	NodeFlowGenerator       = "flow_generator"
	NodeQuestionAsker       = "question_asker"
	NodeAnswerCollector     = "answer_collector"
	NodeConfirmationHandler = "confirmation_handler"
	NodeConversationalReply = "conversational_reply"
	NodeEmotionalSupport    = "emotional_support"
	NodeFallbackHandler     = "fallback_handler"
)

const (
	// IntentConfidenceFloor: intents classified below it go to fallback.
	IntentConfidenceFloor = 0.4
	// InterruptConfidenceThreshold: an interruption commits only above it.
	InterruptConfidenceThreshold = 0.6
)

// User-facing texts.
const (
	FallbackText      = "I'm not sure I understood that correctly. Could you please rephrase your request?"
	RetryLaterText    = "Sorry, I couldn't save your progress just now. Please try again in a moment."
	ConfirmPromptText = "Would you like me to save this information? (Yes/No)"
	SavedText         = "Great! I've saved that information for you. Is there anything else I can help you with?"
	RejectedText      = "No problem! Let me know if you'd like to try again or if there's something else I can help you with."
	firstQuestionText = "Great! Let's set up your %s. "
	nudgeText         = "Would you like to continue where we left off with your %s?"
)
