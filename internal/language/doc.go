// Package language normalizes language codes for the external recognizers.
//
// WhisperX expects ISO 639-1 codes ("ru"); tesseract expects traineddata names
// ("rus", "chi_sim"), optionally joined with "+". Inputs may be either form,
// English words, or BCP 47 tags, which are resolved through golang.org/x/text.
package language
