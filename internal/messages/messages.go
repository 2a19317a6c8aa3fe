// Package messages is the user-facing text catalog. Every message is a pure
// function of its inputs so outgoing text is fully deterministic.
package messages

import (
	"fmt"
	"strings"

	"github.com/yadbot/yadbot/internal/i18n"
)

const ParseModeHTML = "HTML"

func Escape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(strings.TrimSpace(s))
}

func pick(lang i18n.Lang, fa, en string) string {
	if lang == i18n.FA {
		return fa
	}
	return en
}

func StartWelcome(lang i18n.Lang) string {
	return pick(lang,
		"👋 <b>سلام!</b>\nمن یادآور شما هستم. کافیست بنویسید یا بگویید:\n«یادم بنداز فردا ساعت ۱۰ به مادرم زنگ بزنم»\n\nدستورها: /list /help /status /settings",
		"👋 <b>Hi!</b>\nI'm your reminder assistant. Just type or say:\n\"remind me to call mom tomorrow at 10\"\n\nCommands: /list /help /status /settings")
}

func Help(lang i18n.Lang) string {
	return pick(lang,
		"ℹ️ <b>راهنما</b>\n• ساخت یادآور: «فردا ساعت ۵ جلسه دارم»\n• دیدن یادآورها: /list\n• ویرایش: «یادآور جلسه را به ساعت ۶ تغییر بده»\n• حذف: «یادآور جلسه را حذف کن»\n• وضعیت اشتراک: /status\n• تنظیمات: /settings\n• لغو گفتگوی جاری: /cancel",
		"ℹ️ <b>Help</b>\n• Create: \"meeting tomorrow at 5pm\"\n• View: /list\n• Edit: \"move my meeting reminder to 6pm\"\n• Delete: \"delete my meeting reminder\"\n• Subscription: /status\n• Settings: /settings\n• Cancel the current conversation: /cancel")
}

func ErrorDefault(lang i18n.Lang) string {
	return pick(lang,
		"🚫 <b>خطایی رخ داد</b>\nلطفاً دوباره تلاش کنید.",
		"🚫 <b>Something went wrong</b>\nPlease try again.")
}

func ErrorUnknownCommand(lang i18n.Lang) string {
	return pick(lang, "❓ <b>دستور ناشناخته</b>", "❓ <b>Unknown command</b>")
}

func ErrorUnsupportedMessageType(lang i18n.Lang) string {
	return pick(lang,
		"🤖 <b>این نوع پیام را نمی‌فهمم</b>\nپیام متنی یا صوتی بفرستید.",
		"🤖 <b>I can't handle that kind of message</b>\nSend text or a voice message.")
}

func VoiceTranscriptionFailed(lang i18n.Lang) string {
	return pick(lang,
		"🎤 <b>پیام صوتی واضح نبود</b>\nلطفاً دوباره بگویید یا بنویسید.",
		"🎤 <b>I couldn't understand the voice message</b>\nPlease repeat or type it.")
}

func AskTask(lang i18n.Lang) string {
	return pick(lang,
		"📝 چه چیزی را یادآوری کنم؟\nمثلاً: «زنگ زدن به مادرم»",
		"📝 What should I remind you about?\nFor example: \"call my mom\"")
}

func AskDate(lang i18n.Lang) string {
	return pick(lang,
		"📅 چه روزی؟\nمثلاً: «فردا»، «شنبه» یا «۵ آبان»",
		"📅 Which day?\nFor example: \"tomorrow\", \"Saturday\" or \"December 12\"")
}

func AskTime(lang i18n.Lang) string {
	return pick(lang,
		"⏰ چه ساعتی؟\nمثلاً: «۱۰ صبح» یا «۱۸:۳۰»",
		"⏰ What time?\nFor example: \"10 am\" or \"18:30\"")
}

func AskAmPm(lang i18n.Lang, hour int) string {
	return pick(lang,
		fmt.Sprintf("🕐 ساعت %d صبح یا %d شب؟", hour, hour),
		fmt.Sprintf("🕐 Did you mean %d AM or %d PM?", hour, hour))
}

func AskChange(lang i18n.Lang) string {
	return pick(lang,
		"✏️ چه چیزی تغییر کند؟ مثلاً: «ساعتش را بکن ۶» یا «متنش را عوض کن»",
		"✏️ What should change? For example: \"make it 6pm\" or \"change the text\"")
}

func AskRephrase(lang i18n.Lang) string {
	return pick(lang,
		"🤔 متوجه نشدم. لطفاً جور دیگری بگویید.",
		"🤔 I didn't catch that. Could you say it differently?")
}

func AskTarget(lang i18n.Lang) string {
	return pick(lang,
		"🔎 کدام یادآور؟ بخشی از متن آن را بنویسید.",
		"🔎 Which reminder? Tell me part of its text.")
}

func TargetNotFound(lang i18n.Lang) string {
	return pick(lang,
		"🔎 <b>یادآوری با این مشخصات پیدا نشد</b>\nبا /list یادآورهای فعال را ببینید.",
		"🔎 <b>No reminder matched that</b>\nUse /list to see your active reminders.")
}

func DisambiguationHeader(lang i18n.Lang) string {
	return pick(lang,
		"🔎 <b>چند یادآور مطابقت دارد</b>\nیکی را انتخاب کنید:",
		"🔎 <b>Several reminders match</b>\nPick one:")
}

func ClarifyGiveUp(lang i18n.Lang) string {
	return pick(lang,
		"🤔 هنوز متوجه نشدم. می‌خواهید ادامه دهید یا لغو کنید؟",
		"🤔 I still didn't get that. Try once more, or cancel?")
}

func ConfirmQuestion(lang i18n.Lang) string {
	return pick(lang,
		"تأیید می‌کنید؟ (بله / خیر، یا همین‌جا اصلاح کنید: «نه، ساعت ۶»)",
		"Shall I save it? (yes / no, or correct me right here: \"no, 6pm instead\")")
}

func ConfirmCreateHeader(lang i18n.Lang) string {
	return pick(lang, "✅ <b>یادآور جدید</b>", "✅ <b>New reminder</b>")
}

func ConfirmEditHeader(lang i18n.Lang) string {
	return pick(lang, "✏️ <b>ویرایش یادآور</b>", "✏️ <b>Edit reminder</b>")
}

func ConfirmDeleteHeader(lang i18n.Lang) string {
	return pick(lang,
		"🗑 <b>حذف یادآور</b>\nاین یادآور حذف شود؟",
		"🗑 <b>Delete reminder</b>\nReally delete this one?")
}

func TaskLine(lang i18n.Lang, task string) string {
	return pick(lang, "📝 <b>کار:</b> ", "📝 <b>Task:</b> ") + Escape(task)
}

func WhenLine(lang i18n.Lang, weekday, dateStr, timeStr string) string {
	return pick(lang,
		fmt.Sprintf("📅 <b>زمان:</b> %s %s ساعت %s", Escape(weekday), Escape(dateStr), Escape(timeStr)),
		fmt.Sprintf("📅 <b>When:</b> %s %s at %s", Escape(weekday), Escape(dateStr), Escape(timeStr)))
}

func RecurrenceLine(lang i18n.Lang, rule string) string {
	names := map[string][2]string{
		"daily":   {"هر روز", "every day"},
		"weekly":  {"هر هفته", "every week"},
		"monthly": {"هر ماه", "every month"},
	}
	n, ok := names[rule]
	if !ok {
		return ""
	}
	return pick(lang, "🔁 <b>تکرار:</b> "+n[0], "🔁 <b>Repeats:</b> "+n[1])
}

func AssumedTimeLine(lang i18n.Lang, timeStr string) string {
	return pick(lang,
		fmt.Sprintf("⏰ ساعتی نگفتید؛ %s در نظر گرفتم. اگر ساعت دیگری می‌خواهید همین‌جا بنویسید.", Escape(timeStr)),
		fmt.Sprintf("⏰ You didn't give a time, so I assumed %s. Tell me another time here if you want to change it.", Escape(timeStr)))
}

func Saved(lang i18n.Lang) string {
	return pick(lang, "🎉 <b>یادآور ذخیره شد</b>", "🎉 <b>Reminder saved</b>")
}

func Updated(lang i18n.Lang) string {
	return pick(lang, "✏️ <b>یادآور به‌روزرسانی شد</b>", "✏️ <b>Reminder updated</b>")
}

func Deleted(lang i18n.Lang) string {
	return pick(lang, "🗑 <b>یادآور حذف شد</b>", "🗑 <b>Reminder deleted</b>")
}

func Cancelled(lang i18n.Lang) string {
	return pick(lang, "❌ <b>لغو شد</b>", "❌ <b>Cancelled</b>")
}

func NothingToCancel(lang i18n.Lang) string {
	return pick(lang, "چیزی برای لغو نیست.", "Nothing to cancel.")
}

func AbandonConfirm(lang i18n.Lang) string {
	return pick(lang,
		"⚠️ یک حذف تأییدنشده در جریان است. رها شود و درخواست جدید را ادامه دهم؟",
		"⚠️ You have an unconfirmed delete in progress. Drop it and continue with the new request?")
}

func RetryPrompt(lang i18n.Lang) string {
	return pick(lang,
		"⏳ ارتباط با سرویس برقرار نشد؛ اطلاعات شما محفوظ است. لطفاً دوباره بفرستید.",
		"⏳ I couldn't reach the service; nothing was lost. Please send that again.")
}

func TierLimitReached(lang i18n.Lang, limit int) string {
	return pick(lang,
		fmt.Sprintf("🚦 <b>به سقف %d یادآور فعال رسیدید</b>\nبرای یادآورهای بیشتر اشتراک تهیه کنید.", limit),
		fmt.Sprintf("🚦 <b>You've reached your limit of %d active reminders</b>\nUpgrade for more.", limit))
}

func UpgradeButton(lang i18n.Lang) string {
	return pick(lang, "⭐ ارتقا اشتراک", "⭐ Upgrade")
}

func ListHeader(lang i18n.Lang, page int) string {
	return pick(lang,
		fmt.Sprintf("📋 <b>یادآورهای فعال</b> (صفحه %d)", page+1),
		fmt.Sprintf("📋 <b>Active reminders</b> (page %d)", page+1))
}

func ListEmpty(lang i18n.Lang) string {
	return pick(lang,
		"📭 یادآور فعالی ندارید.",
		"📭 You have no active reminders.")
}

func ListItem(index int, task, weekday, dateStr, timeStr string) string {
	return fmt.Sprintf("%d. %s — %s %s %s", index, Escape(task), Escape(weekday), Escape(dateStr), timeStr)
}

func StatusInfo(lang i18n.Lang, tier string, expires string, used, limit int) string {
	if expires == "" {
		return pick(lang,
			fmt.Sprintf("💳 <b>اشتراک:</b> %s\n📊 یادآورهای فعال: %d از %d", tier, used, limit),
			fmt.Sprintf("💳 <b>Plan:</b> %s\n📊 Active reminders: %d of %d", tier, used, limit))
	}
	return pick(lang,
		fmt.Sprintf("💳 <b>اشتراک:</b> %s (تا %s)\n📊 یادآورهای فعال: %d از %d", tier, expires, used, limit),
		fmt.Sprintf("💳 <b>Plan:</b> %s (until %s)\n📊 Active reminders: %d of %d", tier, expires, used, limit))
}

func SettingsPrompt(lang i18n.Lang) string {
	return pick(lang,
		"⚙️ <b>تنظیمات</b>\nچه چیزی را تغییر می‌دهید؟",
		"⚙️ <b>Settings</b>\nWhat would you like to change?")
}

func SettingsSaved(lang i18n.Lang) string {
	return pick(lang, "✔️ ذخیره شد.", "✔️ Saved.")
}

func PaymentLink(lang i18n.Lang, url string) string {
	return pick(lang,
		"💳 <b>پرداخت اشتراک</b>\nبرای پرداخت روی پیوند بزنید:\n"+Escape(url),
		"💳 <b>Subscription payment</b>\nFollow the link to pay:\n"+Escape(url))
}

func PaymentNotConfigured(lang i18n.Lang) string {
	return pick(lang,
		"💳 پرداخت در حال حاضر در دسترس نیست.",
		"💳 Payments are not available right now.")
}

func PaymentVerified(lang i18n.Lang, until string) string {
	return pick(lang,
		"🎉 <b>پرداخت تأیید شد</b>\nاشتراک شما تا "+Escape(until)+" فعال است.",
		"🎉 <b>Payment confirmed</b>\nYour subscription is active until "+Escape(until)+".")
}

func PaymentFailed(lang i18n.Lang) string {
	return pick(lang,
		"🚫 <b>پرداخت ناموفق بود</b>\nمبلغی از شما کسر نشده است.",
		"🚫 <b>Payment failed</b>\nYou have not been charged.")
}

func PaymentPending(lang i18n.Lang) string {
	return pick(lang,
		"⏳ <b>وضعیت پرداخت هنوز مشخص نیست</b>\nچند دقیقه دیگر دوباره بررسی کنید؛ ممکن است پرداخت انجام شده باشد.",
		"⏳ <b>Payment status is not clear yet</b>\nCheck again in a few minutes; the charge may have gone through.")
}

func Snoozed(lang i18n.Lang, minutes int) string {
	return pick(lang,
		fmt.Sprintf("😴 باشه، %d دقیقه دیگر دوباره یادآوری می‌کنم.", minutes),
		fmt.Sprintf("😴 Okay, I will remind you again in %d minutes.", minutes))
}

func NotificationText(lang i18n.Lang, task string) string {
	return pick(lang,
		"🔔 <b>یادآوری</b>\n"+Escape(task),
		"🔔 <b>Reminder</b>\n"+Escape(task))
}

func BtnYes(lang i18n.Lang) string     { return pick(lang, "✅ بله", "✅ Yes") }
func BtnNo(lang i18n.Lang) string      { return pick(lang, "❌ خیر", "❌ No") }
func BtnCancel(lang i18n.Lang) string  { return pick(lang, "❌ لغو", "❌ Cancel") }
func BtnRetry(lang i18n.Lang) string   { return pick(lang, "🔄 دوباره", "🔄 Try again") }
func BtnAM(lang i18n.Lang) string      { return pick(lang, "🌅 صبح", "🌅 AM") }
func BtnPM(lang i18n.Lang) string      { return pick(lang, "🌙 شب", "🌙 PM") }
func BtnNext(lang i18n.Lang) string    { return pick(lang, "بعدی ⏩", "Next ⏩") }
func BtnPrev(lang i18n.Lang) string    { return pick(lang, "⏪ قبلی", "⏪ Previous") }
func BtnSnooze(lang i18n.Lang) string  { return pick(lang, "😴 ۱۵ دقیقه بعد", "😴 Snooze 15m") }
