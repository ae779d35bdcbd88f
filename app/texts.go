package app

// User-facing copy. Kept in one place so wording changes never touch
// handler logic.
const (
	textWelcome = "Welcome to the help center!\n" +
		"Pick the topic your request is about."

	textChooseService = "Which service did you pay for?"

	textAskPaymentProof = "Send a screenshot of your payment (photo or file).\n" +
		"You can add a short note in the caption."

	textAskTechIssue = "Describe the problem in one message.\n" +
		"Include what you did and what you expected to happen."

	textOtherIssue = "For anything else, message the support contact directly: %s"

	textSubmissionReceived = "Got it. An admin will review your request shortly."

	textNotInFlow = "Use /start to open the help menu first."

	textUnknownCommand = "Unknown command. Use /start to open the help menu."

	textRateLimited = "Too fast. Give it a second and try again."

	textNotAllowed = "This command is for admins."

	textSessionPromptVip   = "Send the new VIP invite link as a message."
	textSessionPromptDark  = "Send the new DARK invite link as a message."
	textSessionPromptBoth  = "Send both links in one message: <vip> <dark>."
	textSessionPromptCast  = "Send the broadcast text as a message."
	textSessionPromptReply = "Send your reply to the user as a message."

	textSessionCancelled = "Cancelled."
	textNoActiveSession  = "No active session to cancel."

	textTicketGone = "This request was already handled."
)
