package handlers

import (
	"net/http"

	"cinedolly/internal/middleware"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	codeBadRequest          = "bad_request"
	codeBusy                = "busy"
	codeCredentialExpired   = "credential_expired"
	codeGeneric             = "generic"
	codeImageRequired       = "image_required"
	codeInvalidImage        = "invalid_image"
	codeKeyRequired         = "key_required"
	codeKeyUnsupported      = "key_unsupported"
	codeNoOutput            = "no_output"
	codeNotFound            = "not_found"
	codeSelectorUnavailable = "selector_unavailable"
	codeTimeout             = "timeout"
	codeTooLarge            = "too_large"
)

var messages = map[language.Tag]map[string]string{
	language.English: {
		codeBadRequest:          "Invalid request.",
		codeBusy:                "A video is already being generated.",
		codeCredentialExpired:   "API Session Expired. Please re-select your key.",
		codeGeneric:             "An unexpected error occurred.",
		codeImageRequired:       "Please upload an interior image.",
		codeInvalidImage:        "The uploaded file is not a supported image.",
		codeKeyRequired:         "Select an API key before generating a video.",
		codeKeyUnsupported:      "This environment does not accept API keys.",
		codeNoOutput:            "Video generation failed: no output received.",
		codeNotFound:            "Not found.",
		codeSelectorUnavailable: "API key selection is not available in this environment.",
		codeTimeout:             "Video generation took too long.",
		codeTooLarge:            "The uploaded image is too large.",
	},
	language.Indonesian: {
		codeBadRequest:          "Permintaan tidak valid.",
		codeBusy:                "Video sedang dibuat.",
		codeCredentialExpired:   "Sesi API berakhir. Silakan pilih ulang kunci Anda.",
		codeGeneric:             "Terjadi kesalahan yang tidak terduga.",
		codeImageRequired:       "Silakan unggah gambar interior.",
		codeInvalidImage:        "Berkas yang diunggah bukan gambar yang didukung.",
		codeKeyRequired:         "Pilih kunci API sebelum membuat video.",
		codeKeyUnsupported:      "Lingkungan ini tidak menerima kunci API.",
		codeNoOutput:            "Pembuatan video gagal: tidak ada hasil yang diterima.",
		codeNotFound:            "Tidak ditemukan.",
		codeSelectorUnavailable: "Pemilihan kunci API tidak tersedia di lingkungan ini.",
		codeTimeout:             "Pembuatan video terlalu lama.",
		codeTooLarge:            "Gambar yang diunggah terlalu besar.",
	},
}

var cat = buildCatalog()

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, entries := range messages {
		for key, msg := range entries {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

func localize(r *http.Request, code string) string {
	tag := language.Make(middleware.LocaleFromContext(r.Context()))
	return message.NewPrinter(tag, message.Catalog(cat)).Sprintf(code)
}
