package classifier

// Intent is the immediate purpose of an inbound WhatsApp message.
type Intent string

const (
	IntentDocument Intent = "document_submission"
	IntentGreeting Intent = "greeting"
	IntentHelp     Intent = "help"
	IntentArrest   Intent = "arrest_query"
	IntentBail     Intent = "bail_query"
	IntentCourt    Intent = "court_query"
	IntentLawyer   Intent = "lawyer_query"
	IntentRights   Intent = "rights_query"
	IntentGeneral  Intent = "general_query"
)

// Swahili terms sit alongside English: kushikwa (arrested), dhamana (bail),
// kesi/mahakama (case/court), wakili (advocate), haki (rights), msaada (help).
var intentRules = []Rule[Intent]{
	{IntentDocument, Pattern(`document:|file:`)},
	{IntentGreeting, Pattern(`^(hi|hello|hey|hujambo|habari|sasa)\b`)},
	{IntentHelp, Pattern(`help|assist|support|msaada`)},
	{IntentArrest, Pattern(`arrest|arrested|kushikwa|police`)},
	{IntentBail, Pattern(`bail|bond|dhamana`)},
	{IntentCourt, Pattern(`court|hearing|kesi|mahakama`)},
	{IntentLawyer, Pattern(`lawyer|advocate|wakili`)},
	{IntentRights, Pattern(`rights|haki`)},
}

func DetectIntent(message string) Intent {
	return First(intentRules, Normalize(message), IntentGeneral)
}
