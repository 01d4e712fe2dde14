package domain

import "errors"

var (
	// ErrInvalidCommand 指令欄位缺漏或格式錯誤
	ErrInvalidCommand = errors.New("invalid command")

	// ErrAmountMustBePositive 金額必須為正數
	ErrAmountMustBePositive = errors.New("amount must be positive")

	// ErrInvalidSplit 拆帳內容不合法 (空的、非正數、重複成員、總額不符)
	ErrInvalidSplit = errors.New("invalid split")

	// ErrUnknownMember 成員在此卡片沒有權益帳戶，或不屬於該錢包
	ErrUnknownMember = errors.New("unknown member")

	// ErrWalletMismatch 卡片不屬於該錢包
	ErrWalletMismatch = errors.New("card does not belong to wallet")

	// ErrWalletNotFound 錢包不存在
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInsufficientPoolBalance 資金池可用餘額不足
	ErrInsufficientPoolBalance = errors.New("insufficient pool balance")

	// ErrBalanceOverflow 入帳後餘額超出 int64 範圍
	ErrBalanceOverflow = errors.New("balance would overflow")

	// ErrInsufficientAvailableBalance 成員可用權益不足
	ErrInsufficientAvailableBalance = errors.New("insufficient available balance")

	// ErrInvalidStateTransition 提款請求狀態不允許此操作
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrWithdrawalNotFound 找不到提款請求
	ErrWithdrawalNotFound = errors.New("withdrawal request not found")

	// ErrDuplicateTransaction 交易已存在 (儲存層內部使用，對外轉為重放結果)
	ErrDuplicateTransaction = errors.New("transaction already processed")

	// ErrStorageFailure 原子提交失敗，整筆交易可安全重試
	ErrStorageFailure = errors.New("storage failure")

	// ErrLockTimeout 取得卡片鎖逾時
	ErrLockTimeout = errors.New("card lock wait timed out")

	// ErrProviderUnsupported 不支援的 BaaS provider
	ErrProviderUnsupported = errors.New("baas provider not supported")

	// ErrInvalidSignature webhook 簽章驗證失敗
	ErrInvalidSignature = errors.New("invalid webhook signature")
)
