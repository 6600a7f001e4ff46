package types

import "time"

// AntiSpamSettings is the effective anti-spam configuration of a community.
type AntiSpamSettings struct {
	WordFilter                 []string `json:"wordFilter"`
	FirstPostQueueCount        int      `json:"firstPostQueueCount"`
	NewAccountDays             int      `json:"newAccountDays"`
	NewAccountWriteRatePerMin  int      `json:"newAccountWriteRatePerMin"`
	EstablishedWriteRatePerMin int      `json:"establishedWriteRatePerMin"`
	LinkHoldEnabled            bool     `json:"linkHoldEnabled"`
	TopicCreationDelayEnabled  bool     `json:"topicCreationDelayEnabled"`
	BurstPostCount             int      `json:"burstPostCount"`
	BurstWindowMinutes         int      `json:"burstWindowMinutes"`
	TrustedPostThreshold       int      `json:"trustedPostThreshold"`
}

// DefaultAntiSpamSettings returns the settings used for absent fields.
func DefaultAntiSpamSettings() AntiSpamSettings {
	return AntiSpamSettings{
		WordFilter:                 []string{},
		FirstPostQueueCount:        1,
		NewAccountDays:             7,
		NewAccountWriteRatePerMin:  3,
		EstablishedWriteRatePerMin: 10,
		LinkHoldEnabled:            true,
		TopicCreationDelayEnabled:  true,
		BurstPostCount:             5,
		BurstWindowMinutes:         10,
		TrustedPostThreshold:       10,
	}
}

// AntiSpamOverrides holds the fields a community has explicitly configured.
// Nil fields fall back to the defaults.
type AntiSpamOverrides struct {
	WordFilter                 []string `json:"wordFilter,omitempty"`
	FirstPostQueueCount        *int     `json:"firstPostQueueCount,omitempty"`
	NewAccountDays             *int     `json:"newAccountDays,omitempty"`
	NewAccountWriteRatePerMin  *int     `json:"newAccountWriteRatePerMin,omitempty"`
	EstablishedWriteRatePerMin *int     `json:"establishedWriteRatePerMin,omitempty"`
	LinkHoldEnabled            *bool    `json:"linkHoldEnabled,omitempty"`
	TopicCreationDelayEnabled  *bool    `json:"topicCreationDelayEnabled,omitempty"`
	BurstPostCount             *int     `json:"burstPostCount,omitempty"`
	BurstWindowMinutes         *int     `json:"burstWindowMinutes,omitempty"`
	TrustedPostThreshold       *int     `json:"trustedPostThreshold,omitempty"`
}

// ApplyTo returns base with every configured override applied.
func (o *AntiSpamOverrides) ApplyTo(base AntiSpamSettings) AntiSpamSettings {
	if o == nil {
		return base
	}
	if o.WordFilter != nil {
		base.WordFilter = append([]string(nil), o.WordFilter...)
	}
	setInt(&base.FirstPostQueueCount, o.FirstPostQueueCount)
	setInt(&base.NewAccountDays, o.NewAccountDays)
	setInt(&base.NewAccountWriteRatePerMin, o.NewAccountWriteRatePerMin)
	setInt(&base.EstablishedWriteRatePerMin, o.EstablishedWriteRatePerMin)
	setInt(&base.BurstPostCount, o.BurstPostCount)
	setInt(&base.BurstWindowMinutes, o.BurstWindowMinutes)
	setInt(&base.TrustedPostThreshold, o.TrustedPostThreshold)
	if o.LinkHoldEnabled != nil {
		base.LinkHoldEnabled = *o.LinkHoldEnabled
	}
	if o.TopicCreationDelayEnabled != nil {
		base.TopicCreationDelayEnabled = *o.TopicCreationDelayEnabled
	}
	return base
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// CommunitySetting is the durable row holding a community's anti-spam overrides.
type CommunitySetting struct {
	CommunityDID string             `bun:",pk"                                         json:"communityDid"`
	Overrides    *AntiSpamOverrides `bun:"overrides,type:jsonb"                        json:"overrides"`
	UpdatedAt    time.Time          `bun:",nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}
