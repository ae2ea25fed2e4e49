package conversation

import (
	"github.com/kenyawebs/Tana-Delta/internal/classifier"
	"github.com/kenyawebs/Tana-Delta/internal/models"
)

const greetingReply = `Hello! Welcome to the Kenya Criminal Legal Agent Assistant. How can I help you today? You can ask me about:

1. Your rights if arrested
2. Bail and bond procedures
3. Court processes
4. Finding a lawyer
5. Any other legal questions`

const helpReply = `I'm here to help with your legal questions. Here are some things I can assist with:

1. Explaining your rights under Kenyan law
2. Providing information about arrest procedures
3. Explaining bail and bond processes
4. Guiding you through court procedures
5. Helping you understand legal documents

Just type your question, and I'll do my best to assist you.`

const lawyerReply = `To find a lawyer in Kenya, you have several options:

1. Law Society of Kenya (LSK) - Contact them at +254 720 904 294 or visit www.lsk.or.ke
2. Legal Aid Centre of Eldoret (LACE) - For those in Western Kenya
3. Kituo Cha Sheria - Provides free legal advice, contact +254 727 773 991
4. FIDA Kenya - Specializes in women's rights issues

If you can't afford a lawyer, you may qualify for free legal aid under the Legal Aid Act. Would you like more specific information about legal aid services?`

const generalReply = `Thank you for your question. I've recorded your query and our legal team will analyze it shortly. For complex legal matters, we recommend visiting our website at www.sureintel.co.ke for more comprehensive assistance.

In the meantime, is there any specific aspect of Kenyan criminal law you'd like to know about?`

const maintenanceReply = "Our service is currently undergoing maintenance. Please try again later."

const arrestAnswer = `If you are arrested in Kenya, you have the following rights:

1. Right to be informed promptly of the reason for arrest
2. Right to remain silent
3. Right to communicate with an advocate and other persons
4. Right to be brought before a court within 24 hours
5. Right not to be compelled to make any confession or admission
6. Right to be released on bond or bail on reasonable conditions
7. Right to be presumed innocent until proven guilty

If any of these rights are violated, inform your lawyer immediately as evidence obtained through rights violations may be inadmissible in court.`

const bailAnswer = `Bail and Bond in Kenya:

Bail is a constitutional right under Article 49(1)(h) of the Constitution of Kenya. Here's what you need to know:

1. You can apply for bail at the police station (police bail) or in court
2. The court considers factors like the seriousness of the offense, your character, and flight risk
3. Bail can be granted with or without sureties (people who guarantee your appearance)
4. Bail amounts vary based on the offense and circumstances
5. If denied bail, you can appeal the decision to a higher court

For serious offenses like murder or terrorism, bail may be harder to obtain but is still possible.`

const courtAnswer = `The Kenyan criminal court process follows these general steps:

1. Arrest and police custody (maximum 24 hours)
2. First appearance in court (plea taking)
3. Bail/bond application
4. Pre-trial procedures (disclosure of evidence)
5. Trial (prosecution and defense present cases)
6. Judgment and sentencing (if found guilty)
7. Appeal (if desired)

The process can take anywhere from a few months to several years depending on the complexity of the case and court backlog. During this time, you have the right to legal representation and fair treatment.`

const rightsAnswer = `Your Legal Rights in Kenya's Criminal Justice System:

1. Right to dignity and fair treatment
2. Right to legal representation (advocate of your choice)
3. Right to be presumed innocent until proven guilty
4. Right to remain silent and not incriminate yourself
5. Right to be informed of charges in a language you understand
6. Right to a fair and public trial without unreasonable delay
7. Right to be present when being tried
8. Right to an interpreter without payment if you cannot understand the language used at trial

These rights are protected by Articles 49, 50 and 51 of the Constitution of Kenya.`

// canned is an intent answered on the spot and recorded as a completed
// query so it appears in the user's history.
type canned struct {
	answer     string
	queryType  models.QueryType
	references []models.Reference
	took       float64
}

var cannedQueries = map[classifier.Intent]canned{
	classifier.IntentArrest: {
		answer:    arrestAnswer,
		queryType: models.QueryProceduralGuidance,
		references: []models.Reference{
			{Title: "Constitution of Kenya", Section: "Article 49", Text: "Rights of arrested persons"},
			{Title: "Criminal Procedure Code", Section: "Section 21-24", Text: "Arrest procedures"},
		},
		took: 1.2,
	},
	classifier.IntentBail: {
		answer:    bailAnswer,
		queryType: models.QueryProceduralGuidance,
		references: []models.Reference{
			{Title: "Constitution of Kenya", Section: "Article 49(1)(h)", Text: "Right to bail"},
			{Title: "Criminal Procedure Code", Section: "Section 123", Text: "Bail procedures"},
		},
		took: 1.5,
	},
	classifier.IntentCourt: {
		answer:    courtAnswer,
		queryType: models.QueryProceduralGuidance,
		references: []models.Reference{
			{Title: "Criminal Procedure Code", Section: "Section 200-205", Text: "Court procedures"},
		},
		took: 1.3,
	},
	classifier.IntentRights: {
		answer:    rightsAnswer,
		queryType: models.QueryLegalDefinition,
		references: []models.Reference{
			{Title: "Constitution of Kenya", Section: "Article 49-51", Text: "Rights of arrested persons"},
		},
		took: 1.1,
	},
}

var staticReplies = map[classifier.Intent]string{
	classifier.IntentGreeting: greetingReply,
	classifier.IntentHelp:     helpReply,
	classifier.IntentLawyer:   lawyerReply,
}
