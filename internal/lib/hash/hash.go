package hash

import "golang.org/x/crypto/bcrypt"

// * Hash возвращает bcrypt-хеш секрета. Соль генерируется заново при каждом
// вызове, поэтому два хеша одного секрета не совпадают.
func Hash(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(h), nil
}

// * Verify сравнивает секрет с хешем. На битом хеше возвращает false,
// а не ошибку.
func Verify(secret, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(secret)) == nil
}
