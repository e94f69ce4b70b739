package bot

import (
	"context"
	"fmt"
	"regexp"

	"betbot/bot/common"
	"betbot/bot/features/account"
	"betbot/bot/features/admin"
	"betbot/bot/features/deposits"
	"betbot/bot/features/support"
	"betbot/bot/features/wagers"
	"betbot/service"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Routing outcomes reported to the metrics recorder
const (
	ResultHandled = "handled"
	ResultIgnored = "ignored"
	ResultRefused = "refused"
	ResultError   = "error"
	ResultPanic   = "panic"
)

// Group text triggers
var (
	betPattern      = regexp.MustCompile(`(?i)^bet\s+(\d+)$`)
	balancePattern  = regexp.MustCompile(`(?i)^balance$`)
	transferPattern = regexp.MustCompile(`(?i)^transfer\s+(\d+)$`)
	deductPattern   = regexp.MustCompile(`(?i)^deduct\s+(\d+)$`)
)

// UpdateRecorder counts routed updates
type UpdateRecorder interface {
	RecordUpdate(updateType, result string)
}

// CallbackHandler claims button clicks by payload prefix
type CallbackHandler interface {
	HandleCallback(ctx context.Context, u common.Update) (bool, error)
}

// Features groups the feature handlers the dispatcher routes to
type Features struct {
	Wagers   *wagers.Feature
	Deposits *deposits.Feature
	Account  *account.Feature
	Support  *support.Feature
	Admin    *admin.Feature
}

// Dispatcher routes platform-neutral updates to features
type Dispatcher struct {
	gate      *service.MembershipGate
	sessions  *common.SessionStore
	responder *common.Responder
	features  Features
	callbacks []CallbackHandler
	metrics   UpdateRecorder
}

// NewDispatcher creates a dispatcher. metrics may be nil.
func NewDispatcher(gate *service.MembershipGate, sessions *common.SessionStore, responder *common.Responder, features Features, metrics UpdateRecorder) *Dispatcher {
	return &Dispatcher{
		gate:      gate,
		sessions:  sessions,
		responder: responder,
		features:  features,
		callbacks: []CallbackHandler{
			features.Wagers,
			features.Deposits,
			features.Support,
			features.Admin,
		},
		metrics: metrics,
	}
}

// Dispatch handles one update. It never panics; failures are reported to
// the user and, when unexpected, to the owner.
func (d *Dispatcher) Dispatch(ctx context.Context, u common.Update) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	updateType := "message"
	if u.IsCallback() {
		updateType = "callback"
	}

	result := ResultIgnored
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"update_id": u.ID,
				"user_id":   u.From.ID,
				"panic":     r,
			}).Error("Recovered from panic while handling update")
			d.responder.HandleError(ctx, u, fmt.Errorf("panic: %v", r))
			result = ResultPanic
		}
		if d.metrics != nil {
			d.metrics.RecordUpdate(updateType, result)
		}
	}()

	fields := log.Fields{
		"update_id": u.ID,
		"user_id":   u.From.ID,
		"chat_id":   u.ChatID,
		"type":      updateType,
	}

	route, err := d.gate.Check(ctx, u.GateRequest())
	if err != nil {
		log.WithFields(fields).WithError(err).Error("Membership gate failed")
		d.responder.HandleError(ctx, u, err)
		result = ResultError
		return
	}
	if route != service.RouteContinue {
		log.WithFields(fields).WithField("route", route.String()).Debug("Update stopped by membership gate")
		result = route.String()
		return
	}

	handled, err := d.route(ctx, u)
	switch {
	case err != nil:
		d.responder.HandleError(ctx, u, err)
		result = ResultError
		if common.IsExpected(err) {
			result = ResultRefused
		}
	case handled:
		result = ResultHandled
	}
	log.WithFields(fields).WithField("result", result).Debug("Update routed")
}

func (d *Dispatcher) route(ctx context.Context, u common.Update) (bool, error) {
	if u.IsCallback() {
		return d.routeCallback(ctx, u)
	}

	if name, args, ok := u.Command(); ok {
		if !u.Private {
			return false, nil
		}
		return d.routeCommand(ctx, u, name, args)
	}

	if u.Private {
		session, ok := d.sessions.Get(u.From.ID)
		if !ok {
			return false, nil
		}
		return true, d.routeSession(ctx, u, session)
	}
	return d.routeGroup(ctx, u)
}

func (d *Dispatcher) routeCallback(ctx context.Context, u common.Update) (bool, error) {
	for _, h := range d.callbacks {
		handled, err := h.HandleCallback(ctx, u)
		if handled || err != nil {
			return handled, err
		}
	}
	// Stop the client's loading indicator
	d.responder.Answer(ctx, u, "", false)
	return false, nil
}

func (d *Dispatcher) routeCommand(ctx context.Context, u common.Update, name string, args []string) (bool, error) {
	// A new command abandons any unfinished conversation
	hadSession := d.sessions.End(u.From.ID)

	switch name {
	case "cancel":
		if hadSession {
			d.responder.Reply(ctx, u, "Operation cancelled.")
		} else {
			d.responder.Reply(ctx, u, "There is nothing to cancel.")
		}
		return true, nil
	case "start":
		return true, d.features.Account.HandleStart(ctx, u, args)
	case "balance":
		return true, d.features.Account.HandleBalance(ctx, u)
	case "referral":
		return true, d.features.Account.HandleReferral(ctx, u)
	case "deposit":
		return true, d.features.Deposits.HandleCommand(ctx, u)
	case "support":
		return true, d.features.Support.HandleCommand(ctx, u)
	}
	return d.features.Admin.HandleCommand(ctx, u, name, args)
}

func (d *Dispatcher) routeSession(ctx context.Context, u common.Update, session common.Session) error {
	switch session.Kind {
	case common.SessionDepositAmount, common.SessionDepositReceipt:
		return d.features.Deposits.HandleSession(ctx, u, session)
	case common.SessionSupportMessage, common.SessionSupportReply:
		return d.features.Support.HandleSession(ctx, u, session)
	case common.SessionBetPhoto:
		return d.features.Admin.HandleSession(ctx, u, session)
	}
	log.WithFields(log.Fields{
		"user_id": u.From.ID,
		"kind":    session.Kind,
	}).Warn("Dropping session of unknown kind")
	d.sessions.End(u.From.ID)
	return nil
}

func (d *Dispatcher) routeGroup(ctx context.Context, u common.Update) (bool, error) {
	if m := betPattern.FindStringSubmatch(u.Text); m != nil {
		if stake, ok := common.ParsePositive(m[1]); ok {
			return true, d.features.Wagers.HandlePropose(ctx, u, stake)
		}
		return false, nil
	}
	if balancePattern.MatchString(u.Text) {
		return true, d.features.Account.HandleBalance(ctx, u)
	}
	if m := transferPattern.FindStringSubmatch(u.Text); m != nil {
		if amount, ok := common.ParsePositive(m[1]); ok {
			return d.features.Account.HandleTransfer(ctx, u, amount)
		}
		return false, nil
	}
	if m := deductPattern.FindStringSubmatch(u.Text); m != nil {
		if amount, ok := common.ParsePositive(m[1]); ok {
			return d.features.Account.HandleDeduct(ctx, u, amount)
		}
	}
	return false, nil
}
