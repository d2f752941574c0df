package utils

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes bcrypt 只接受 72 字节以内的输入（按字节，不是字符）
const MaxPasswordBytes = 72

var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// HashPassword 超过 MaxPasswordBytes 时返回 ErrPasswordTooLong
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(pw, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
}

var dummyHash = sync.OnceValue(func() []byte {
	b, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	return b
})

// BurnCompare 账户不存在时也跑一次 bcrypt，登录耗时不暴露账户是否存在
func BurnCompare(pw string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(pw))
}
