package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Section is one page of the /start menu.
type Section string

const (
	SectionJoin    Section = "join"
	SectionUID     Section = "uid"
	SectionRecord  Section = "record"
	SectionFAQ     Section = "faq"
	SectionInquiry Section = "inquiry"
	SectionBenefit Section = "benefit"
)

type menuEntry struct {
	section Section
	label   string
	text    string
	mode    Mode // input mode entered when the page is opened
}

const startText = `🔥 Pros Team: official entry guide 🔥

Plenty of information floats around the market,
but the setups that actually make money are shared in a closed room.

Pros Team is not just a community.
It is where active traders design strategies
and prepare for where capital is moving next.

Continue from the menu below.`

// menu is shown in this order, one button per row.
var menu = []menuEntry{
	{
		section: SectionJoin,
		label:   "🚀 How to join",
		text: `🚀 How to join Pros Team

1️⃣ Sign up on Bitunix through the official partner link
2️⃣ Complete KYC
3️⃣ Submit your UID
4️⃣ Receive an invite to the team room once verified

⚠ Benefits only apply to sign-ups through the link below

https://www.bitunix.com/register?vipCode=TeamPros`,
	},
	{
		section: SectionUID,
		label:   "📝 Submit UID",
		text: `📝 Submit UID

Send your UID as digits only (6-12 digits).
Example: 12345678

We will send your invite link once it has been reviewed.`,
		mode: ModeUID,
	},
	{
		section: SectionRecord,
		label:   "📊 Team record",
		text: `📊 Team record

Pros runs on live trading.
Recent strategies and results are published here:

https://pros.qshop.ai/strategy`,
	},
	{
		section: SectionFAQ,
		label:   "❓ FAQ",
		text: `❓ FAQ

Q. Can I use an existing account?
A. Only accounts registered through the partner link qualify.

Q. Is KYC required?
A. Yes. Only KYC-verified accounts are approved.

Q. How long does approval take?
A. Submissions are reviewed in order and the invite link is sent afterwards.

Q. What if I am inactive?
A. Inactive accounts may be removed.`,
	},
	{
		section: SectionInquiry,
		label:   "👨‍💻 1:1 inquiry",
		text: `👨‍💻 1:1 inquiry

Type your question as a single message.
It is forwarded directly to the team.`,
		mode: ModeInquiry,
	},
	{
		section: SectionBenefit,
		label:   "💎 Bitunix benefits",
		text: `💎 Bitunix benefits

1️⃣ Task Center: start, then deposit
   (transfer via another exchange required)

2️⃣ 50% bonus on the first deposit

3️⃣ Extra campaign and Task Center events

Only available to partner-link sign-ups.`,
	},
}

const (
	defaultReplyText = "Press /start to open the menu."
	inquiryAckText   = "✅ Your inquiry has been received.\n\nThe team will review it and contact you directly."
	inquiryTooLong   = "Your message is too long. Please shorten it and send it again."
	inquiryEmpty     = "Please type your question as text."
	tryLaterText     = "Something went wrong on our side. Please try again in a moment."
	slowDownText     = "You are sending messages too quickly. Please wait a moment."
	adminOnlyText    = "Only operators can do that."
	staleButtonText  = "This button is no longer valid."
	noPendingText    = "No pending UIDs."
)

func findSection(s Section) (menuEntry, bool) {
	for _, e := range menu {
		if e.section == s {
			return e, true
		}
	}
	return menuEntry{}, false
}

// MainMenu returns the inline keyboard of the /start menu.
func MainMenu() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(menu))
	for _, e := range menu {
		data := Command{Action: ActionMenu, Section: e.section}.Encode()
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(e.label, data)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// reviewKeyboard carries the approve/reject actions of a review card.
func reviewKeyboard(uid string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Approve", Command{Action: ActionApprove, UID: uid}.Encode()),
		tgbotapi.NewInlineKeyboardButtonData("❌ Reject", Command{Action: ActionReject, UID: uid}.Encode()),
	))
}
