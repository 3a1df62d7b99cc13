// Package locale holds the server's player-facing texts.
package locale

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	EwecaRising    = "notice.eweca_rising"
	EwecaGone      = "notice.eweca_gone"
	AccountBanned  = "login.banned"
	UnknownRegion  = "login.unknown_region"
	TargetNotFound = "gm.target_not_found"
	TargetBanned   = "gm.target_banned"
	NothingDropped = "prop.nothing"
	NpcTooFar      = "npc.too_far"
	SummonedBy     = "gm.summoned_by"
	TargetKicked   = "gm.target_kicked"
	WrongPassword  = "login.wrong_password"
	IncidentsNone  = "gm.incidents_none"
	IncidentLine   = "gm.incident_line"
)

var texts = map[language.Tag]map[string]string{
	language.English: {
		EwecaRising:    "Eweca is rising.\nMana is starting to fill the air all around.",
		EwecaGone:      "Eweca has disappeared.\nThe surrounding Mana is starting to fade away.",
		AccountBanned:  "This account is banned until %s.",
		UnknownRegion:  "The region %d does not exist.",
		TargetNotFound: "Character '%s' couldn't be found.",
		TargetBanned:   "'%s' has been banned until %s.",
		NothingDropped: "Nothing happened.",
		NpcTooFar:      "You're too far away.",
		SummonedBy:     "You've been summoned by '%s'.",
		TargetKicked:   "'%s' has been kicked.",
		WrongPassword:  "Incorrect account name or password.",
		IncidentsNone:  "No incidents recorded for '%s'.",
		IncidentLine:   "%s [%s] %s, score %d: %s",
	},
	language.TraditionalChinese: {
		EwecaRising:    "艾威卡升起了。\n周圍開始充滿魔力。",
		EwecaGone:      "艾威卡消失了。\n周圍的魔力開始消散。",
		AccountBanned:  "此帳號已被封鎖至 %s。",
		UnknownRegion:  "區域 %d 不存在。",
		TargetNotFound: "找不到角色「%s」。",
		TargetBanned:   "「%s」已被封鎖至 %s。",
		NothingDropped: "什麼事也沒發生。",
		NpcTooFar:      "距離太遠了。",
		SummonedBy:     "你被「%s」召喚了。",
		TargetKicked:   "「%s」已被踢出。",
		WrongPassword:  "帳號或密碼錯誤。",
		IncidentsNone:  "「%s」沒有違規紀錄。",
		IncidentLine:   "%s [%s] %s，分數 %d：%s",
	},
}

// Catalog formats messages in one language.
type Catalog struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a catalog for the BCP 47 tag lang. Unsupported languages fall
// back to English.
func New(lang string) (*Catalog, error) {
	want, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("locale %q: %w", lang, err)
	}

	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range texts {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("locale %s %s: %w", tag, key, err)
			}
		}
	}

	supported := b.Languages()
	tag := language.English
	if _, idx, conf := language.NewMatcher(supported).Match(want); conf != language.No {
		tag = supported[idx]
	}
	return &Catalog{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(b)),
	}, nil
}

// Language returns the language messages are formatted in.
func (c *Catalog) Language() language.Tag { return c.tag }

// Get formats the message stored under key.
func (c *Catalog) Get(key string, args ...any) string {
	return c.printer.Sprintf(key, args...)
}
