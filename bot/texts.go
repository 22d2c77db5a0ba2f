package bot

const (
	startText = "Hi! Send me a positive prompt, an optional negative prompt and a style, " +
		"and I will draw an image for you.\nUse /positive to begin."
	helpText = "You can use the following commands:\n" +
		"/start - begin a new image\n" +
		"/positive - set the positive prompt\n" +
		"/negative - set the negative prompt\n" +
		"/skip_negative - go without a negative prompt\n" +
		"/style - choose a style\n" +
		"/generate - create the image\n" +
		"/help - show this help"
	positiveAskText       = "Send me the positive prompt (a word or a phrase)."
	positiveSetText       = "Positive prompt set: %s\nSend a negative prompt (/negative) or skip it (/skip_negative)."
	negativeAskText       = "Send me the negative prompt (a word or a phrase) or use /skip_negative to skip it."
	negativeSetText       = "Negative prompt set: %s\nChoose a style (/style)."
	negativeSkippedText   = "Negative prompt skipped. Choose a style (/style)."
	styleMenuText         = "Choose a style:"
	styleSetText          = "Style set: %s\nNow use /generate to create the image."
	unknownStyleText      = "Unknown style"
	incompleteText        = "Please make sure you have set a positive prompt and chosen a style."
	generatingText        = "Generating your image, this may take a minute..."
	alreadyGeneratingText = "Your image is still being generated, please wait."
	rateLimitedText       = "Too many images for now, please try again in a minute."
	doneText              = "Done! Use /start to create another one."
	failedText            = "Something went wrong while generating the image. Try /generate again or /start over."
	cancelledText         = "The previous generation was cancelled."
	emptyText             = "Please send some text."
	unknownText           = "I did not understand that. Use /start to begin or /help for the list of commands."
	unknownCommandText    = "Unknown command. Use /help for the list of commands."
	storageErrorText      = "Sorry, I could not save that. Please try again."
)
