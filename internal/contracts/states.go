package contracts

// 상태 머신 정의 (SSOT)
// 모든 로그와 요약 출력에서 이 상수를 사용해야 함
//
// 스키마:  NotApplied → Applying → Applied
// 백필:    Pending → Backfilling → Verified | PartiallyFailed

// SchemaState represents the schema step state
type SchemaState string

const (
	SchemaNotApplied SchemaState = "NOT_APPLIED"
	SchemaApplying   SchemaState = "APPLYING"
	SchemaApplied    SchemaState = "APPLIED"
)

// String returns the state name
func (s SchemaState) String() string {
	return string(s)
}

// BackfillState represents a category's backfill state
type BackfillState string

const (
	BackfillPending         BackfillState = "PENDING"
	BackfillRunning         BackfillState = "BACKFILLING"
	BackfillVerified        BackfillState = "VERIFIED"
	BackfillPartiallyFailed BackfillState = "PARTIALLY_FAILED"
)

// String returns the state name
func (s BackfillState) String() string {
	return string(s)
}

// Terminal reports whether no further transitions happen
func (s BackfillState) Terminal() bool {
	return s == BackfillVerified || s == BackfillPartiallyFailed
}

// Description returns Korean description of the state
func (s BackfillState) Description() string {
	switch s {
	case BackfillPending:
		return "대기"
	case BackfillRunning:
		return "백필 진행중"
	case BackfillVerified:
		return "검증 완료"
	case BackfillPartiallyFailed:
		return "부분 실패"
	default:
		return "알 수 없음"
	}
}

// ApplyResult is the typed outcome of one schema change
type ApplyResult string

const (
	ResultApplied        ApplyResult = "APPLIED"
	ResultAlreadyApplied ApplyResult = "ALREADY_APPLIED"
)
