package futu

import (
	"errors"
	"fmt"

	"github.com/futuopen/ftapi4go/pb/common"
)

// APIError 表示 OpenD 网关返回的业务失败。网络失败与业务拒单均
// 以 error 形式向上传递，本包不做区分，也不做任何重试。
type APIError struct {
	RetType int32
	ErrCode int32
	Msg     string
}

func (e *APIError) Error() string {
	if e.ErrCode != 0 {
		return fmt.Sprintf("futu: 网关返回失败 ret=%d err_code=%d msg=%q", e.RetType, e.ErrCode, e.Msg)
	}
	return fmt.Sprintf("futu: 网关返回失败 ret=%d msg=%q", e.RetType, e.Msg)
}

// IsAPIError 判断错误是否为网关业务失败。
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// checkRet 校验响应头，非成功返回 *APIError。
func checkRet(retType int32, errCode int32, retMsg string) error {
	if ret := common.RetType(retType); ret == common.RetType_RetType_Succeed {
		return nil
	}
	return &APIError{RetType: retType, ErrCode: errCode, Msg: retMsg}
}

// ErrTimeout 表示等待网关响应超时。
var ErrTimeout = errors.New("futu: 等待网关响应超时")
