package conversation

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	textGreeting      = "Hi, welcome to the restaurant booking bot."
	textAskDate       = "What date would you like to dine?"
	textAskSlot       = "Please select your preferred dining time:"
	textAskName       = "Please enter your name."
	textAskSeats      = "How many seats do you require?"
	textSeatsRetry    = "The value entered must be from 1 to 10."
	textAskConfirm    = "Is this OK?"
	textBooked        = "Yay! Your booking was successful... We look forward to seeing you soon!"
	textRejected      = "Unfortunately, we had problems making your booking. Please try again soon!"
	textDeclined      = "Thank you for your inquiry. Please be in touch to make future bookings."
	textFetchFailed   = "Sorry, we could not check availability right now. Please try again later."
	textSubmitUnknown = "Sorry, something went wrong while making your booking and we could not confirm whether it went through. Please contact the restaurant before trying again."

	choiceYes = "Yes"
	choiceNo  = "No"
)

func textFullyBooked(date string) string {
	return fmt.Sprintf("Oh no! We are fully booked for %s. Please check another date... We would love to share our food with you soon!", date)
}

func textThanks(name string) string { return fmt.Sprintf("Thanks %s.", name) }

func textSummary(name string, seats int, slot, date string) string {
	return fmt.Sprintf("%s, you have requested a table for %d at %s on %s.", name, seats, slot, date)
}

// matchChoice resolves a reply against a closed choice set, by label
// (case-insensitive) or by 1-based position.
func matchChoice(choices []string, in string) (string, bool) {
	in = strings.TrimSpace(in)
	if in == "" {
		return "", false
	}
	for _, c := range choices {
		if strings.EqualFold(c, in) {
			return c, true
		}
	}
	if n, err := strconv.Atoi(in); err == nil && n >= 1 && n <= len(choices) {
		return choices[n-1], true
	}
	return "", false
}

var (
	yesWords = map[string]bool{"yes": true, "y": true, "yeah": true, "yep": true, "ok": true, "okay": true, "sure": true, "true": true}
	noWords  = map[string]bool{"no": true, "n": true, "nope": true, "nah": true, "false": true}
)

// parseConfirm reports (answer, recognised).
func parseConfirm(in string) (bool, bool) {
	if c, ok := matchChoice([]string{choiceYes, choiceNo}, in); ok {
		return c == choiceYes, true
	}
	w := strings.ToLower(strings.TrimRight(strings.TrimSpace(in), ".!"))
	switch {
	case yesWords[w]:
		return true, true
	case noWords[w]:
		return false, true
	}
	return false, false
}
