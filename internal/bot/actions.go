// Package bot wires the Telegram surface: callback actions, keyboards,
// conversation handlers, and the registry routing between them.
package bot

import (
	"errors"
	"fmt"
	"strings"

	"driverbot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// Verb is one member of the closed set of callback commands. Anything
// outside this set is rejected at the parse boundary.
type Verb string

const (
	VerbRate       Verb = "rate"
	VerbShare      Verb = "share"
	VerbBuy        Verb = "buy"
	VerbConfirmPay Verb = "payok"
	VerbRejectPay  Verb = "payno"
	VerbViewCar    Verb = "carview"
	VerbRemoveCar  Verb = "cardel"
	VerbAddCar     Verb = "caradd"
	VerbUpgrade    Verb = "upgrade"
	VerbCancel     Verb = "cancel"

	VerbAdminStats     Verb = "adm_stats"
	VerbAdminFinance   Verb = "adm_fin"
	VerbAdminBroadcast Verb = "adm_cast"
	VerbAdminDelPlate  Verb = "adm_delplate"
	VerbAdminFindUser  Verb = "adm_find"
	VerbAdminBan       Verb = "adm_ban"
)

var knownVerbs = map[Verb]bool{
	VerbRate: true, VerbShare: true, VerbBuy: true,
	VerbConfirmPay: true, VerbRejectPay: true,
	VerbViewCar: true, VerbRemoveCar: true, VerbAddCar: true,
	VerbUpgrade: true, VerbCancel: true,
	VerbAdminStats: true, VerbAdminFinance: true, VerbAdminBroadcast: true,
	VerbAdminDelPlate: true, VerbAdminFindUser: true, VerbAdminBan: true,
}

// actionVersion tags callback payloads so stale buttons from older bot
// versions are rejected instead of misparsed.
const actionVersion = "1"

// ErrBadAction marks a callback that fails verb or version validation.
var ErrBadAction = errors.New("bot: unknown or stale callback action")

// Action is a decoded callback command.
type Action struct {
	Verb Verb
	Arg  string
}

// encodeArg prefixes the payload with the action version.
func encodeArg(arg string) string {
	return actionVersion + ":" + arg
}

// ParseAction decodes and validates the callback on c. The verb must be
// in the closed set and the payload version must match.
func ParseAction(c tele.Context) (Action, error) {
	return parseAction(callbacks.CallbackKey(c), callbacks.CallbackPayload(c))
}

func parseAction(key, payload string) (Action, error) {
	verb := Verb(key)
	if !knownVerbs[verb] {
		return Action{}, fmt.Errorf("%w: verb %q", ErrBadAction, key)
	}
	version, arg, found := strings.Cut(payload, ":")
	if !found || version != actionVersion {
		return Action{}, fmt.Errorf("%w: payload %q", ErrBadAction, payload)
	}
	return Action{Verb: verb, Arg: arg}, nil
}
