package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/foxseedlab/shadowinterview/internal/audio"
	"github.com/foxseedlab/shadowinterview/internal/interview"
)

const (
	statusLoaded          = "Interview loaded. Press advance to hear the first question."
	statusSpeaking        = "Listen to the question."
	statusOpening         = "Opening microphone and transcription stream."
	statusRecording       = "Recording. Press advance to submit your answer."
	statusEmptyTranscript = "Nothing has been transcribed yet. Answer the question before submitting."
	statusSubmitting      = "Submitting your answer for scoring."
	statusFeedback        = "Feedback is ready. Press advance for the next question."
	statusLoadingNext     = "Loading the next question."
	statusFinalizing      = "Finalizing the interview."
	statusComplete        = "Interview complete."
	statusStreamClosed    = "Transcription stopped. Press advance to submit what was captured or to resume recording."

	actionLoad     = "load the interview"
	actionRecord   = "start recording"
	actionSubmit   = "submit your answer"
	actionNext     = "load the next question"
	actionFinalize = "finalize the interview"
)

// failureStatus converts a transition error into a message for the user.
func failureStatus(action string, err error) string {
	switch {
	case errors.Is(err, audio.ErrPermissionDenied):
		return "Microphone access was denied. Allow access and press advance to retry."
	case errors.Is(err, audio.ErrDeviceUnavailable):
		return "No usable microphone or camera was found. Connect a device and press advance to retry."
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("Timed out trying to %s. Press advance to retry.", action)
	case errors.Is(err, errQuestionOutOfRange), errors.Is(err, errQuestionIndexRegress), errors.Is(err, errNoQuestions):
		return fmt.Sprintf("The interview service returned an invalid question while trying to %s.", action)
	}
	var apiErr *interview.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusNotFound {
			return fmt.Sprintf("The interview was not found while trying to %s.", action)
		}
		return fmt.Sprintf("The interview service could not %s (status %d). Press advance to retry.", action, apiErr.StatusCode)
	}
	return fmt.Sprintf("Could not %s: %v. Press advance to retry.", action, err)
}
