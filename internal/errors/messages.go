package errors

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message catalogue keys carried in AppError.Code
const (
	// File load
	CodeFileNotFound      = "file_not_found"
	CodePermissionDenied  = "permission_denied"
	CodeUnsupportedFormat = "unsupported_format"
	CodeEmptyFile         = "empty_file"
	CodeCorruptFile       = "corrupt_file"
	CodeLimitExceeded     = "limit_exceeded"

	// Validation
	CodeNonNumeric       = "non_numeric"
	CodeDivisionByZero   = "division_by_zero"
	CodeOverflow         = "overflow"
	CodeUnsupportedUnit  = "unsupported_unit"
	CodeInvalidSelection = "invalid_selection"
	CodeInvalidFormula   = "invalid_formula"
	CodeInvalidParameter = "invalid_parameter"
	CodeShapeMismatch    = "shape_mismatch"

	// Export
	CodeExportFailed = "export_failed"
	CodeDiskFull     = "disk_full"

	// Session state
	CodeNoDataset       = "no_dataset"
	CodeUndoUnavailable = "undo_unavailable"
	CodeRedoUnavailable = "redo_unavailable"
	CodeBusy            = "busy"

	CodeNotFound = "not_found"
	CodeConfig   = "config"
)

// SupportedLanguages lists the languages user-facing messages are available in.
// The first entry is the fallback.
var SupportedLanguages = []language.Tag{language.English, language.Korean}

var languageMatcher = language.NewMatcher(SupportedLanguages)

type localized struct {
	en string
	ko string
}

var messages = map[string]localized{
	CodeFileNotFound:      {"The file could not be found.", "파일을 찾을 수 없습니다."},
	CodePermissionDenied:  {"Permission to access the file was denied.", "파일에 접근할 권한이 없습니다."},
	CodeUnsupportedFormat: {"The file format is not supported.", "지원하지 않는 파일 형식입니다."},
	CodeEmptyFile:         {"The file contains no data.", "파일에 데이터가 없습니다."},
	CodeCorruptFile:       {"The file is damaged or could not be read.", "파일이 손상되었거나 읽을 수 없습니다."},
	CodeLimitExceeded:     {"The file exceeds the size, row or column limit.", "파일이 크기, 행 또는 열 제한을 초과했습니다."},
	CodeNonNumeric:        {"The selection contains a value that is not a number.", "선택 영역에 숫자가 아닌 값이 있습니다."},
	CodeDivisionByZero:    {"Division by zero is not allowed.", "0으로 나눌 수 없습니다."},
	CodeOverflow:          {"The result is too large to represent.", "결과 값이 표현 가능한 범위를 벗어났습니다."},
	CodeUnsupportedUnit:   {"The unit is not supported.", "지원하지 않는 단위입니다."},
	CodeInvalidSelection:  {"The column or row selection is invalid.", "열 또는 행 선택이 올바르지 않습니다."},
	CodeInvalidFormula:    {"The formula is invalid.", "수식이 올바르지 않습니다."},
	CodeInvalidParameter:  {"The operation parameter is invalid.", "작업 매개변수가 올바르지 않습니다."},
	CodeShapeMismatch:     {"The data shape does not match the loaded dataset.", "데이터 구조가 불러온 데이터와 일치하지 않습니다."},
	CodeExportFailed:      {"The file could not be saved.", "파일을 저장할 수 없습니다."},
	CodeDiskFull:          {"There is not enough disk space to save the file.", "디스크 공간이 부족하여 파일을 저장할 수 없습니다."},
	CodeNoDataset:         {"No data has been loaded.", "불러온 데이터가 없습니다."},
	CodeUndoUnavailable:   {"There is nothing to undo.", "실행 취소할 작업이 없습니다."},
	CodeRedoUnavailable:   {"There is nothing to redo.", "다시 실행할 작업이 없습니다."},
	CodeBusy:              {"Another operation is in progress.", "다른 작업이 진행 중입니다."},
	CodeNotFound:          {"The requested resource was not found.", "요청한 리소스를 찾을 수 없습니다."},
	CodeConfig:            {"The application configuration is invalid.", "애플리케이션 설정이 올바르지 않습니다."},
}

var messageCatalog = buildCatalog()

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for code, msg := range messages {
		// Keys and texts are static; SetString only fails on malformed tags.
		_ = b.SetString(language.English, code, msg.en)
		_ = b.SetString(language.Korean, code, msg.ko)
	}
	return b
}

// MatchLanguage picks the supported language best matching an
// Accept-Language header value. Unparseable or empty input yields English.
func MatchLanguage(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return SupportedLanguages[0]
	}
	_, idx, _ := languageMatcher.Match(tags...)
	return SupportedLanguages[idx]
}

// Localize returns the user-facing message for code in lang, or "" when the
// code is not in the catalogue.
func Localize(lang language.Tag, code string) string {
	if _, ok := messages[code]; !ok {
		return ""
	}
	return message.NewPrinter(lang, message.Catalog(messageCatalog)).Sprintf(code)
}

// UserMessage localizes err for display. AppErrors with a known code use the
// catalogue; anything else falls back to the error text.
func UserMessage(lang language.Tag, err error) string {
	if appErr, ok := AsAppError(err); ok {
		if msg := Localize(lang, appErr.Code); msg != "" {
			return msg
		}
		return appErr.Message
	}
	return err.Error()
}
