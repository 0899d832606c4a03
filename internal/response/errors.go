package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrUsernameTaken      ErrCode = "USERNAME_TAKEN"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrTeacherAccessOnly ErrCode = "TEACHER_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Quiz-specific ─────────────────────────────────────────────────
	ErrQuizNotAvailable  ErrCode = "QUIZ_NOT_AVAILABLE"
	ErrQuizNotPublished  ErrCode = "QUIZ_NOT_PUBLISHED"
	ErrNotQuizAuthor     ErrCode = "NOT_QUIZ_AUTHOR"
	ErrNoQuestions       ErrCode = "NO_QUESTIONS"
	ErrAttemptNotFound   ErrCode = "ATTEMPT_NOT_FOUND"
	ErrAttemptNotTaking  ErrCode = "ATTEMPT_NOT_TAKING"
	ErrConfirmRequired   ErrCode = "CONFIRM_REQUIRED"
	ErrTestNotOpenYet    ErrCode = "TEST_NOT_OPEN_YET"
	ErrTestWindowClosed  ErrCode = "TEST_WINDOW_CLOSED"

	// ─── AI import ─────────────────────────────────────────────────────
	ErrAIUnavailable ErrCode = "AI_UNAVAILABLE"
	ErrAIExtraction  ErrCode = "AI_EXTRACTION_FAILED"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable (Vietnamese) message for a given
// error code. The frontend shows these verbatim.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Tên đăng nhập hoặc mật khẩu không đúng."
	case ErrUsernameTaken:
		return "Tên đăng nhập đã tồn tại."
	case ErrSessionActive:
		return "Bạn đã đăng nhập trên thiết bị khác."
	case ErrSessionInvalidated:
		return "Phiên đăng nhập đã hết hạn. Vui lòng đăng nhập lại."
	case ErrTokenRequired:
		return "Yêu cầu token xác thực."
	case ErrTokenInvalid:
		return "Token xác thực không hợp lệ."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "Bạn không có quyền truy cập tài nguyên này."
	case ErrStudentAccessOnly:
		return "Chức năng này chỉ dành cho học sinh."
	case ErrTeacherAccessOnly:
		return "Chức năng này chỉ dành cho giáo viên."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Dữ liệu không hợp lệ. Vui lòng kiểm tra lại."
	case ErrInvalidID:
		return "Định dạng ID không hợp lệ."
	case ErrInvalidPayload:
		return "Nội dung yêu cầu không hợp lệ."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Không tìm thấy tài nguyên."
	case ErrConflict:
		return "Tài nguyên đã tồn tại."

	// ─── Quiz-specific ─────────────────────────────────────────────────
	case ErrQuizNotAvailable:
		return "Đề thi hiện không khả dụng."
	case ErrQuizNotPublished:
		return "Đề thi chưa được phát hành."
	case ErrNotQuizAuthor:
		return "Bạn không phải người tạo đề thi này."
	case ErrNoQuestions:
		return "Đề thi chưa có câu hỏi nào."
	case ErrAttemptNotFound:
		return "Không tìm thấy lượt làm bài."
	case ErrAttemptNotTaking:
		return "Lượt làm bài đã kết thúc."
	case ErrConfirmRequired:
		return "Cần xác nhận trước khi nộp bài."
	case ErrTestNotOpenYet:
		return "Bài kiểm tra chưa đến giờ bắt đầu."
	case ErrTestWindowClosed:
		return "Bài kiểm tra đã kết thúc."

	// ─── AI import ─────────────────────────────────────────────────────
	case ErrAIUnavailable:
		return "Chức năng AI chưa được cấu hình. Vui lòng thêm API Key."
	case ErrAIExtraction:
		return "Lỗi đọc file PDF. Vui lòng thử lại với file rõ nét hơn."

	// ─── Media ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "Vui lòng chọn file."
	case ErrUnsupportedFile:
		return "Định dạng file không được hỗ trợ."
	case ErrFileTooLarge:
		return "Kích thước file vượt quá giới hạn."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Quá nhiều yêu cầu. Vui lòng thử lại sau."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Đã xảy ra lỗi máy chủ."
	default:
		return "Đã xảy ra lỗi không xác định."
	}
}
