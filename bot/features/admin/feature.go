package admin

import (
	"context"
	"errors"
	"strings"

	"betbot/bot/common"
	"betbot/models"
	"betbot/service"
)

// Feature implements the admin commands
type Feature struct {
	ledger    service.LedgerService
	guard     *service.AccessGuard
	settings  service.SettingsService
	channels  service.ChannelService
	stats     service.StatsService
	sessions  *common.SessionStore
	responder *common.Responder
}

func New(
	ledger service.LedgerService,
	guard *service.AccessGuard,
	settings service.SettingsService,
	channels service.ChannelService,
	stats service.StatsService,
	sessions *common.SessionStore,
	responder *common.Responder,
) *Feature {
	return &Feature{
		ledger:    ledger,
		guard:     guard,
		settings:  settings,
		channels:  channels,
		stats:     stats,
		sessions:  sessions,
		responder: responder,
	}
}

type commandHandler func(f *Feature, ctx context.Context, u common.Update, args []string) error

type command struct {
	usage   string
	handler commandHandler
}

var commands map[string]command

// The table is filled in init because /admin lists it
func init() {
	commands = map[string]command{
		"admin":         {"/admin", (*Feature).handlePanel},
		"stats":         {"/stats", (*Feature).handleStats},
		"settax":        {"/settax <0-100>", (*Feature).handleSetTax},
		"setprice":      {"/setprice <toman per credit>", (*Feature).handleSetPrice},
		"setreward":     {"/setreward <credits>", (*Feature).handleSetReward},
		"setcard":       {"/setcard <card number>", (*Feature).handleSetCard},
		"setholder":     {"/setholder <name>", (*Feature).handleSetHolder},
		"setbalance":    {"/setbalance <user id> <credits>", (*Feature).handleSetBalance},
		"setrole":       {"/setrole <user id> admin|moderator|regular", (*Feature).handleSetRole},
		"addchannel":    {"/addchannel @channel | t.me link | <server id> <invite link>", (*Feature).handleAddChannel},
		"removechannel": {"/removechannel", (*Feature).handleRemoveChannel},
		"channels":      {"/channels", (*Feature).handleChannels},
		"lock":          {"/lock", (*Feature).handleLock},
		"setphoto":      {"/setphoto", (*Feature).handleSetPhoto},
		"clearphoto":    {"/clearphoto", (*Feature).handleClearPhoto},
	}
}

// HandleCommand runs an admin command. It reports false for names that
// are not admin commands.
func (f *Feature) HandleCommand(ctx context.Context, u common.Update, name string, args []string) (bool, error) {
	cmd, ok := commands[name]
	if !ok {
		return false, nil
	}
	if !f.guard.IsAdmin(ctx, u.From.ID) {
		f.responder.Reply(ctx, u, "⛔️ You do not have access to this section.")
		return true, nil
	}

	err := cmd.handler(f, ctx, u, args)
	if errors.Is(err, errUsage) {
		f.responder.Reply(ctx, u, "Usage: "+cmd.usage)
		return true, nil
	}
	return true, refuse(err)
}

// HandleSession receives the photo requested by /setphoto
func (f *Feature) HandleSession(ctx context.Context, u common.Update, session common.Session) error {
	if session.Kind != common.SessionBetPhoto {
		return nil
	}
	if u.PhotoRef == "" {
		f.responder.Reply(ctx, u, "❌ Please send a photo.")
		return nil
	}
	f.sessions.End(u.From.ID)
	if err := f.settings.SetBetPhoto(ctx, u.From.ID, u.PhotoRef); err != nil {
		return refuse(err)
	}
	f.responder.Reply(ctx, u, "✅ The bet photo was set.")
	return nil
}

// HandleCallback routes admin_remove_ clicks
func (f *Feature) HandleCallback(ctx context.Context, u common.Update) (bool, error) {
	if !strings.HasPrefix(u.Data, common.CallbackAdminRemove) {
		return false, nil
	}
	return true, f.handleRemoveCallback(ctx, u)
}

var errUsage = errors.New("usage")

// refuse shows validation details of invalid admin input
func refuse(err error) error {
	if errors.Is(err, models.ErrInvalidInput) {
		return common.Refusal(err, "❌ "+err.Error())
	}
	return err
}
