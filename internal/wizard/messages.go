package wizard

const (
	msgWelcomeBack       = "Hi! Welcome to the Telegram bot builder.\nChoose an action:"
	msgAskName           = "Hi! Let's register you. Enter your name:"
	msgConfirmName       = "Your name is %s. Is that correct? (yes/no)"
	msgAnswerYesNo       = "Please answer yes or no."
	msgRegistered        = "Registration complete, %s! Choose an action:"
	msgAlreadyRegistered = "You are already registered."
	msgRegisterFirst     = "Please register first with /start."
	msgMenu              = "Choose an action:"
	msgChooseTemplate    = "Choose a template for the new bot:"
	msgChooseFromMenu    = "Please choose a template using the buttons above or /cancel."
	msgAskBotName        = "Enter the name of the new bot:"
	msgAskToken          = "Enter the bot token from @BotFather (or /cancel):"
	msgInvalidToken      = "Invalid token: %s. Try again or /cancel."
	msgAskWelcome        = "Enter the welcome text for /start (or /skip for the default):"
	msgAskPhone          = "Enter a phone number (for example +1234567890) or /skip:"
	msgAskEmail          = "Enter an email address (for example user@example.com) or /skip:"
	msgAskWebsite        = "Enter a website URL (for example https://example.com) or /skip:"
	msgAskHelp           = "Enter the text for /help (or /skip for the default):"
	msgAskFAQCount       = "How many FAQ questions do you want to add? (1-4 or /cancel):"
	msgInvalidFAQCount   = "The number of questions must be between 1 and 4. Try again or /cancel."
	msgAskQuestion       = "Enter the text of question %d:"
	msgAskAnswer         = "Enter the answer to '%s':"
	msgInvalidText       = "The %s contains unsupported characters. Use letters, digits, spaces and punctuation."
	msgInvalidField      = "%s. Try again or /skip."
	msgBotCreated        = "Bot '%s' created and started! ID: %d"
	msgBotNotStarted     = "Bot '%s' was saved with ID %d but could not be started: %s. Use /restart_bot to try again or /delete_bot to remove it."
	msgCreateFailed      = "Could not create the bot: %s"
	msgNoBots            = "You have no bots yet. Use /create_bot to make one."
	msgBotList           = "Your bots:"
	msgBotLine           = "ID %d: %s (%s)"
	msgAskDeleteID       = "Enter the ID of the bot to delete (or /cancel):"
	msgAskRestartID      = "Enter the ID of the bot to restart (or /cancel):"
	msgInvalidID         = "Please enter a numeric bot ID or /cancel."
	msgBotDeleted        = "Bot %d deleted."
	msgBotRestarted      = "Bot %d restarted."
	msgCancelled         = "Cancelled."
	msgNothingToCancel   = "Nothing to cancel."
	msgUnknownInput      = "I did not understand that. Use /menu to see what I can do."
	msgInternalError     = "Something went wrong, please try again later."
	msgHelp              = "I create simple Telegram bots for you.\n\n" +
		"/create_bot - create a business card or FAQ bot\n" +
		"/list_bots - show your bots\n" +
		"/delete_bot - delete a bot\n" +
		"/restart_bot - restart a bot\n" +
		"/menu - show the menu\n" +
		"/cancel - cancel the current action"
)
