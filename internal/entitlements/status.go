package entitlements

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/roasapp-backend/pkg/db/models"
	"github.com/angelmondragon/roasapp-backend/pkg/enums"
	"github.com/google/uuid"
)

// DefaultTrialWindow is how long a fresh install may be used without premium.
const DefaultTrialWindow = 24 * time.Hour

// Status is the resolved access state of one (user, app) pair.
type Status struct {
	AppID                uuid.UUID        `json:"app_id"`
	AppSlug              string           `json:"app_slug"`
	AppName              string           `json:"app_name"`
	Installed            bool             `json:"installed"`
	IsPremiumActive      bool             `json:"is_premium_active"`
	TrialExpired         bool             `json:"trial_expired"`
	TimeRemainingSeconds int64            `json:"time_remaining_seconds"`
	TimeRemaining        string           `json:"time_remaining"`
	AccessType           enums.AccessType `json:"access_type"`
	InstalledAt          *time.Time       `json:"installed_at,omitempty"`
	ExpiresAt            *time.Time       `json:"expires_at,omitempty"`
	ContactWhatsApp      string           `json:"contact_whatsapp,omitempty"`
	Message              string           `json:"message"`
}

// Blocked reports whether the app must refuse to do work for this user.
func (s Status) Blocked() bool {
	return s.TrialExpired && !s.IsPremiumActive
}

// ResolveStatus evaluates a link at now. An active premium window wins; otherwise the trial
// runs for window from installation. A nil link resolves to not installed.
func ResolveStatus(app *models.App, link *models.UserApp, window time.Duration, now time.Time) Status {
	if window <= 0 {
		window = DefaultTrialWindow
	}
	now = now.UTC()

	var st Status
	if app != nil {
		st.AppID = app.ID
		st.AppSlug = app.Slug
		st.AppName = app.Name
	}
	if link == nil {
		st.AccessType = enums.AccessTypeNone
		st.Message = fmt.Sprintf("%s is not installed yet.", displayName(st.AppName))
		return st
	}

	installed := link.InstalledAt.UTC()
	st.Installed = true
	st.InstalledAt = &installed

	if link.IsPremium && link.PremiumEndDate != nil && link.PremiumEndDate.After(now) {
		end := link.PremiumEndDate.UTC()
		st.IsPremiumActive = true
		st.AccessType = enums.AccessTypePremium
		st.ExpiresAt = &end
		st.setRemaining(end.Sub(now))
		st.Message = fmt.Sprintf("Premium subscription for %s ends in %s.", displayName(st.AppName), st.TimeRemaining)
		return st
	}

	trialEnd := installed.Add(window)
	st.ExpiresAt = &trialEnd
	if now.Before(trialEnd) {
		st.AccessType = enums.AccessTypeTrial
		st.setRemaining(trialEnd.Sub(now))
		st.Message = fmt.Sprintf("The trial for %s ends in %s.", displayName(st.AppName), st.TimeRemaining)
		return st
	}

	st.TrialExpired = true
	st.AccessType = enums.AccessTypeExpired
	st.setRemaining(0)
	st.Message = fmt.Sprintf("The trial for %s has ended.", displayName(st.AppName))
	return st
}

func (s *Status) setRemaining(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.TimeRemainingSeconds = int64(d / time.Second)
	s.TimeRemaining = FormatRemaining(d)
}

// FormatRemaining renders a countdown such as "2d 3h 15m". Anything under a minute shows as "0m".
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "0m"
	}
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int(d / time.Minute)

	parts := make([]string, 0, 3)
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	return strings.Join(parts, " ")
}

func displayName(name string) string {
	if name == "" {
		return "this app"
	}
	return name
}
