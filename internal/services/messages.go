package services

import (
	"fmt"
	"time"

	"github.com/prosteam/invitegate/internal/domain"
)

// UIDFormatPrompt is shown to a submitter whose UID was rejected by format.
const UIDFormatPrompt = "Please send your UID as digits only (6-12 digits).\nExample: 12345678"

func submissionAckText(uid string) string {
	return fmt.Sprintf("✅ UID %s received.\nWe will send your invite link once it has been reviewed.", uid)
}

func inviteText(uid string, inv *domain.Invite) string {
	return fmt.Sprintf(
		"🎉 UID %s approved!\n\nYour personal invite link (single use, valid until %s UTC):\n%s",
		uid, inv.ExpiresAt.UTC().Format("2006-01-02 15:04"), inv.URL,
	)
}

func rejectionText(uid string) string {
	return fmt.Sprintf("❌ UID %s could not be approved.\nPlease check that you registered through the partner link, completed KYC, and submit again.", uid)
}

func inquiryText(r domain.Requester, text string, at time.Time) string {
	return fmt.Sprintf(
		"📩 [1:1 inquiry]\n\nTime: %s\nUser: %s\nUser link: tg://user?id=%d\nUserID: %d\n\nMessage:\n%s",
		at.UTC().Format("2006-01-02 15:04"), r.Mention(), r.ID, r.ID, text,
	)
}
