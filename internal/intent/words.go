package intent

var (
	timePhrases     = []string{"what time", "what's the time", "current time", "time now"}
	datePhrases     = []string{"what date", "what day", "today's date", "what is today", "when is today"}
	locationPhrases = []string{"where am i", "what's my location", "my current location"}
	batteryPhrases  = []string{"battery status", "how's my battery", "battery level", "power status"}
	networkPhrases  = []string{"network info", "what's my ip", "wifi status", "internet connection"}
	systemPhrases   = []string{"system info", "about my computer", "computer details", "system details"}
	diskPhrases     = []string{"disk space", "storage info", "free space", "disk usage"}
	weatherPhrases  = []string{"what's the weather", "weather today", "weather forecast", "how's the weather"}
	jokePhrases     = []string{"tell joke", "tell me a joke", "know any jokes", "say something funny"}
	factPhrases     = []string{"tell fact", "tell me a fact", "interesting fact", "random fact"}
	helpPhrases     = []string{"help me", "what can you do", "your commands", "how to use"}
	wellPhrases     = []string{"how are you", "how you doing", "how do you feel"}
	boredPhrases    = []string{"what to do", "what should i do", "i'm bored", "suggest activity"}
	identityPhrases = []string{"who are you", "what are you", "tell me about yourself"}
)

// HiWords, ByeWords and ThereWords are scanned token by token; multi-word
// entries match as a run of consecutive tokens.
var (
	HiWords    = []string{"hi", "hello", "yo boss", "greetings"}
	ByeWords   = []string{"bye", "goodbye", "until next time"}
	ThereWords = []string{"are you there", "you there"}
)

var questionStarters = map[string]bool{
	"what": true, "who": true, "when": true, "where": true, "why": true, "how": true,
	"is": true, "can": true, "could": true, "would": true, "will": true, "should": true,
}

var wellReplies = []string{
	"I'm doing well, thank you for asking!",
	"I'm functioning optimally today!",
	"All systems operational and ready to assist you!",
}

var activities = []string{
	"How about reading a book?",
	"You could go for a walk and enjoy the fresh air.",
	"Maybe catch up on a TV series you've been meaning to watch.",
	"How about learning something new today?",
	"You could call a friend or family member you haven't spoken to in a while.",
	"Perhaps some exercise would be good for you today.",
}

// thereReplies answer a presence check.
var thereReplies = []string{
	"Yes, I'm here and ready to help!",
	"I'm here, boss.",
	"Right here. What do you need?",
	"Always here for you.",
}

const (
	promptReply   = "How can I help you today?"
	identityReply = "I am Jarvis, your personal AI assistant. I can help you with daily tasks, answer questions, and control connected devices."
	fallbackReply = "I'm not sure how to help with that. Would you like me to search the web for you?"
	lookupReply   = "Let me look that up for you"
)
