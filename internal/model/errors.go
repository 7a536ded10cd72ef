package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。メッセージは利用者向けにスペイン語。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, drive, sheets, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeAccountPending      = "ACCOUNT_PENDING"
	ErrCodeAccountBlocked      = "ACCOUNT_BLOCKED"
	ErrCodeDriveNotConfigured  = "DRIVE_NOT_CONFIGURED"
	ErrCodeProvisionFailed     = "PROVISION_FAILED"
	ErrCodeUploadFailed        = "UPLOAD_FAILED"
	ErrCodeMirrorFailed        = "MIRROR_FAILED"
	ErrCodeSheetPermission     = "SHEET_PERMISSION_DENIED"
	ErrCodeSheetNotFound       = "SHEET_NOT_FOUND"
	ErrCodeInvalidAmount       = "INVALID_AMOUNT"
	ErrCodeInvalidDate         = "INVALID_DATE"
	ErrCodeInvalidType         = "INVALID_TYPE"
	ErrCodeFileTooLarge        = "FILE_TOO_LARGE"
	ErrCodeInvalidFileType     = "INVALID_FILE_TYPE"
	ErrCodeSelfActionForbidden = "SELF_ACTION_FORBIDDEN"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Sesión no válida o expirada.",
		Category: "auth",
		Action:   "Inicia sesión nuevamente.",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "No tienes permisos para realizar esta acción.",
		Category: "auth",
		Action:   "Contacta al administrador si crees que es un error.",
	}
}

// NewAccountPendingError は承認待ちアカウントのエラーを生成する。
func NewAccountPendingError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountPending,
		Message:  "Tu cuenta está pendiente de aprobación.",
		Category: "auth",
		Action:   "Espera a que un administrador apruebe tu cuenta.",
	}
}

// NewAccountBlockedError はブロック済みアカウントのエラーを生成する。
func NewAccountBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountBlocked,
		Message:  "Tu cuenta ha sido bloqueada.",
		Category: "auth",
		Action:   "Contacta al administrador para más información.",
	}
}

// NewDriveNotConfiguredError はStorageBinding未設定の前提条件エラーを生成する。
// コアのRecord Writerはこの状態では一切の副作用を起こさない。
func NewDriveNotConfiguredError() *APIError {
	return &APIError{
		Code:     ErrCodeDriveNotConfigured,
		Message:  "Tu cuenta no tiene configurado el almacenamiento en Drive.",
		Category: "drive",
		Action:   "Espera unos minutos a que se complete la configuración o vuelve a iniciar sesión.",
	}
}

// NewProvisionFailedError はプロビジョニング全体の失敗を表すエラーを生成する。
// 途中まで作成されたフォルダが残る可能性はあるが、部分的なStorageBindingは返さない。
func NewProvisionFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeProvisionFailed,
		Message:  fmt.Sprintf("No se pudo inicializar la estructura de Drive: %s", reason),
		Category: "drive",
		Action:   "Vuelve a intentarlo. Si el problema persiste, contacta al administrador.",
	}
}

// NewUploadFailedError は証憑アップロード失敗のエラーを生成する。
// 証憑付き送信ではこの失敗によりレコードは一切永続化されない。
func NewUploadFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUploadFailed,
		Message:  fmt.Sprintf("No se pudo subir la evidencia a Drive: %s", reason),
		Category: "drive",
		Action:   "Verifica tu conexión y vuelve a intentarlo. El registro no fue guardado.",
	}
}

// NewMirrorFailedError はミラー行の追記失敗を表すエラーを生成する。
// レコード本体は既に永続化済みであり、ロールバックされないことを明示する。
func NewMirrorFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeMirrorFailed,
		Message:  fmt.Sprintf("El registro fue guardado, pero no se pudo reflejar en la hoja de cálculo: %s", reason),
		Category: "sheets",
		Action:   "Tus datos están a salvo. Contacta al administrador para sincronizar la hoja.",
	}
}

// NewSheetPermissionError はSheets APIの権限不足エラーを生成する。
func NewSheetPermissionError() *APIError {
	return &APIError{
		Code:     ErrCodeSheetPermission,
		Message:  "Permisos insuficientes en Sheets. Contacta al administrador.",
		Category: "sheets",
		Action:   "Vuelve a iniciar sesión para renovar los permisos de Google.",
	}
}

// NewSheetNotFoundError はミラー先スプレッドシートが見つからない場合のエラーを生成する。
// StorageBindingの設定不整合を示す。
func NewSheetNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeSheetNotFound,
		Message:  "Hoja de cálculo no encontrada. Revisa tu configuración de Drive.",
		Category: "sheets",
		Action:   "Contacta al administrador para regenerar tu configuración de Drive.",
	}
}

// NewSheetGenericError はSheets APIの汎用エラーを生成する。ステータスとメッセージを含める。
func NewSheetGenericError(status int, msg string) *APIError {
	return &APIError{
		Code:     ErrCodeMirrorFailed,
		Message:  fmt.Sprintf("Error Sheets (%d): %s", status, msg),
		Category: "sheets",
		Action:   "Vuelve a intentarlo más tarde.",
	}
}

// NewInvalidAmountError は金額バリデーションエラーを生成する。
func NewInvalidAmountError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAmount,
		Message:  "El monto debe ser mayor a 0.",
		Category: "validation",
		Action:   "Ingresa un monto cobrado o ingresado mayor a cero.",
	}
}

// NewInvalidDateError は日付バリデーションエラーを生成する。
func NewInvalidDateError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDate,
		Message:  fmt.Sprintf("Fecha inválida: %s", value),
		Category: "validation",
		Action:   "Usa el formato YYYY-MM-DD.",
	}
}

// NewInvalidTypeError はレコード種別バリデーションエラーを生成する。
func NewInvalidTypeError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidType,
		Message:  fmt.Sprintf("Tipo de registro inválido: %s", value),
		Category: "validation",
		Action:   "El tipo debe ser cobro o ingreso.",
	}
}

// NewFileTooLargeError はファイルサイズ超過エラーを生成する。
func NewFileTooLargeError() *APIError {
	return &APIError{
		Code:     ErrCodeFileTooLarge,
		Message:  "El archivo es demasiado grande (Máx 5MB).",
		Category: "validation",
		Action:   "Selecciona una imagen de menos de 5MB.",
	}
}

// NewInvalidFileTypeError は証憑ファイルのMIME種別エラーを生成する。
func NewInvalidFileTypeError(mime string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFileType,
		Message:  fmt.Sprintf("Tipo de archivo no permitido: %s", mime),
		Category: "validation",
		Action:   "Solo se aceptan imágenes como evidencia.",
	}
}

// NewSelfActionForbiddenError は管理者の自己操作禁止エラーを生成する。
// ストアへの一切の変更前に検査される。
func NewSelfActionForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeSelfActionForbidden,
		Message:  "No puedes realizar acciones administrativas sobre tu propio usuario.",
		Category: "auth",
		Action:   "Pide a otro administrador que realice la acción.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("Usuario no encontrado: %s", id),
		Category: "auth",
		Action:   "Verifica el identificador del usuario.",
	}
}
