package auth

import (
	"github.com/zestcart/zestcart/internal/domain"
)

// IsAdmin reports whether the token belongs to an admin account.
func IsAdmin(claims *Claims) bool {
	return claims != nil && claims.Role == domain.RoleAdmin
}

// CanListProducts reports whether the token may create product listings.
func CanListProducts(claims *Claims) bool {
	if claims == nil {
		return false
	}
	return claims.Role == domain.RoleAdmin || claims.Role == domain.RoleVendor
}

// CanManageProduct reports whether the token may modify or delete the
// product, admins always may, vendors only on their own listings.
func CanManageProduct(claims *Claims, product *domain.Product) bool {
	if claims == nil {
		return false
	}
	if claims.Role == domain.RoleAdmin {
		return true
	}
	return claims.Role == domain.RoleVendor && product.OwnerID == claims.UserID
}

// CanViewOrder reports whether the token may read the order.
func CanViewOrder(claims *Claims, o *domain.Order) bool {
	if claims == nil {
		return false
	}
	return claims.Role == domain.RoleAdmin || o.UserID == claims.UserID
}
