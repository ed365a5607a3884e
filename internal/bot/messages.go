package bot

// User-facing message texts
const (
	msgWelcome = "Welcome to the Polis Chronicler Bot 🏛️\nHere you can send your audio dialogues to transcribe them and record into our Chronicle.\nClick the button below to begin."

	msgGuidance = "Please use the button 'Send file' to start a session. Everything else will be ignored. ⛔"

	msgActiveSession = "You already have an active session. Finish it first. 🔄"

	msgChooseLanguage    = "Choose the language of your audio:"
	msgChooseModel       = "Choose the model size (the bigger size - the longer time):"
	msgChooseTemperature = "Select temperature (controls transcription creativity):"
	msgChooseOutput      = "Choose what you want to receive:"
	msgSendAudio         = "🆗 Great. Now send me your audio file or voice message."

	msgNotAudio = "This doesn't look like an audio file. Only audio formats are supported."

	msgSessionExpired = "⏳ Session expired due to inactivity.\nPlease start again."
	msgSessionEnded   = "Session ended 🫡. Ready for another one:"

	msgStoreYes = "Your file will be saved to the Chronicle. 📄"
	msgStoreNo  = "Okay, file will not be saved."

	msgStorePrompt = "Do you want to save this transcript to our Chronicle?"

	msgNothingToSave = "There is no transcript to save for this session."
)
