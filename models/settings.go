package models

import "strconv"

// SettingKey names a global setting
type SettingKey string

const (
	SettingCreditPrice       SettingKey = "credit_price"
	SettingInitialBalance    SettingKey = "initial_balance"
	SettingReferralReward    SettingKey = "referral_reward"
	SettingBetTaxRate        SettingKey = "bet_tax_rate"
	SettingCardNumber        SettingKey = "card_number"
	SettingCardHolder        SettingKey = "card_holder"
	SettingBetPhotoFileID    SettingKey = "bet_photo_file_id"
	SettingForcedChannelLock SettingKey = "forced_channel_lock"
)

// Fallbacks used when a numeric setting is missing or unparsable
const (
	DefaultCreditPrice    int64 = 1000
	DefaultInitialBalance int64 = 10
	DefaultReferralReward int64 = 5
	DefaultBetTaxRate     int64 = 2
)

// NoPhoto is the stored value of bet_photo_file_id when no photo is set
const NoPhoto = "None"

// DefaultSettings are written at startup for keys that are absent
func DefaultSettings() map[SettingKey]string {
	return map[SettingKey]string{
		SettingCreditPrice:       strconv.FormatInt(DefaultCreditPrice, 10),
		SettingInitialBalance:    strconv.FormatInt(DefaultInitialBalance, 10),
		SettingReferralReward:    strconv.FormatInt(DefaultReferralReward, 10),
		SettingBetTaxRate:        strconv.FormatInt(DefaultBetTaxRate, 10),
		SettingCardNumber:        "not set",
		SettingCardHolder:        "not set",
		SettingBetPhotoFileID:    NoPhoto,
		SettingForcedChannelLock: "false",
	}
}

// ParseIntSetting parses a stored value, returning fallback on failure
func ParseIntSetting(value string, ok bool, fallback int64) int64 {
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
