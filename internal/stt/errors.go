package stt

import "github.com/Astrocyte74/tts-hub/internal/apperr"

var (
	errAlignerUnavailable = apperr.New(apperr.KindEngineUnavailable, "stt: no alignment model configured")
	errBadWindow          = apperr.New(apperr.KindBadRequest, "stt: align_region window is empty")
	errEmptyWindow        = apperr.New(apperr.KindBadRequest, "stt: align_region window has no text to align")
)
