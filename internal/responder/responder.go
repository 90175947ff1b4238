// Package responder answers common payment questions with a canned reply.
package responder

import "strings"

var DefaultKeywords = []string{
	"как купить",
	"как перевести",
	"как оплатить",
	"нужно оплатить",
	"нужно перевести",
	"нужно купить",
}

const DefaultReply = "👋 Уважаемый клиент,\n\n" +
	"Обратитесь в один из наших аккаунтов:\n\n" +
	"Оплата сервисов:\n" +
	"- @OplatymRU\n" +
	"- @ByOplatymRu\n" +
	"- @oplatymManager3\n" +
	"- @OplatymRu4\n\n" +
	"Денежные переводы:\n" +
	"- @oplatym_exchange07\n" +
	"- @Oplatym_exchange20\n\n" +
	"Alipay:\n" +
	"- @CNYExchangeOplatym\n" +
	"- @CNYExchangeOplatym2\n\n" +
	"_________________________________________\n\n" +
	"К вашему сведению, мы первыми не пишем! Пожалуйста остерегайтесь мошенников."

type Responder struct {
	keywords []string
	reply    string
}

// New falls back to the defaults for empty arguments.
func New(keywords []string, reply string) *Responder {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	if reply == "" {
		reply = DefaultReply
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	return &Responder{keywords: lowered, reply: reply}
}

// Respond returns the canned reply if text contains any trigger phrase,
// otherwise "".
func (r *Responder) Respond(text string) string {
	lower := strings.ToLower(text)
	for _, k := range r.keywords {
		if strings.Contains(lower, k) {
			return r.reply
		}
	}
	return ""
}
