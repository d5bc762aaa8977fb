package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind 流水线错误类别
type Kind string

const (
	KindIO     Kind = "IO"     // 分段文件的打开/读取/写入/删除失败
	KindOracle Kind = "ORACLE" // 摘要服务调用失败（网络、非 2xx、响应无法解析）
	KindStore  Kind = "STORE"  // 持久化失败，包括事务回滚
)

// PipelineError 带类别与操作名的错误，原始错误通过 Unwrap 保留
type PipelineError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func NewIO(op string, err error) *PipelineError {
	return &PipelineError{Kind: KindIO, Op: op, Err: err}
}

func NewOracle(op string, err error) *PipelineError {
	return &PipelineError{Kind: KindOracle, Op: op, Err: err}
}

func NewStore(op string, err error) *PipelineError {
	return &PipelineError{Kind: KindStore, Op: op, Err: err}
}

// Is 判断错误链中是否存在指定类别的 PipelineError
func Is(err error, kind Kind) bool {
	var pErr *PipelineError
	if stderrors.As(err, &pErr) {
		return pErr.Kind == kind
	}
	return false
}
