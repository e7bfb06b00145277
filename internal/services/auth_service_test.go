package services_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"stockpos/internal/domain"
	"stockpos/internal/services"
)

func reason(err error) any {
	if de, ok := domain.AsError(err); ok {
		return de.Details["reason"]
	}
	return nil
}

func TestTerminalSessionIsUnique(t *testing.T) {
	w := newWorld(t)
	login := services.TerminalLogin{Serial: "POS-A1", AppVersion: "2.5.0"}

	first, err := w.terminals.Authenticate(w.ctx, login, "10.0.0.2", "pos")
	if err != nil {
		t.Fatal(err)
	}
	second, err := w.terminals.Authenticate(w.ctx, login, "10.0.0.3", "pos")
	if err != nil {
		t.Fatal(err)
	}
	if first.Token == second.Token || len(second.Token) != 32 {
		t.Fatalf("tokens should be fresh 32-char hex strings: %q %q", first.Token, second.Token)
	}
	if _, err := w.auth.Resolve(w.ctx, first.Token, "POS-A1", ""); kindOf(t, err) != domain.KindUnauthenticated {
		t.Fatalf("replaced session should be rejected, got %v", err)
	}
	p, err := w.auth.Resolve(w.ctx, second.Token, "POS-A1", "")
	if err != nil {
		t.Fatal(err)
	}
	if p.ShopID != w.shop.ID || p.MerchantID != w.m1.MerchantID || p.Actor != "terminal:POS-A1" {
		t.Fatalf("principal wrong: %+v", p)
	}
	if n, _ := w.store.Sessions.CountActive(w.ctx, p.TerminalID); n != 1 {
		t.Fatalf("want exactly one active session, got %d", n)
	}
	if !strings.Contains(w.logs.String(), `"replaced_sessions":1`) {
		t.Fatal("session replacement not logged")
	}

	if _, err := w.auth.Resolve(w.ctx, second.Token, "POS-A2", ""); kindOf(t, err) != domain.KindUnauthenticated {
		t.Fatalf("serial mismatch should be rejected, got %v", err)
	}
	if !strings.Contains(w.logs.String(), `"action":"terminal.serial_mismatch"`) {
		t.Fatal("serial mismatch not logged")
	}

	if err := w.auth.Logout(w.ctx, p); err != nil {
		t.Fatal(err)
	}
	if _, err := w.auth.Resolve(w.ctx, second.Token, "", ""); kindOf(t, err) != domain.KindUnauthenticated {
		t.Fatalf("logged out session should be rejected, got %v", err)
	}
}

func TestConcurrentTerminalLogin(t *testing.T) {
	w := newWorld(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := w.terminals.Authenticate(w.ctx, services.TerminalLogin{Serial: "POS-A2"}, "10.0.0.9", "pos"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if n, _ := w.store.Sessions.CountActive(w.ctx, w.t2.TerminalID); n != 1 {
		t.Fatalf("concurrent logins left %d active sessions", n)
	}
}

func TestTerminalLoginRefusals(t *testing.T) {
	w := newWorld(t)

	_, err := w.terminals.Authenticate(w.ctx, services.TerminalLogin{Serial: "NOPE-1"}, "", "")
	if kindOf(t, err) != domain.KindForbidden {
		t.Fatalf("unknown serial should be forbidden, got %v", err)
	}
	_, err = w.terminals.Authenticate(w.ctx, services.TerminalLogin{Serial: "POS-A1", APIKey: "wrong"}, "", "")
	if kindOf(t, err) != domain.KindForbidden {
		t.Fatalf("bad api key should be forbidden, got %v", err)
	}
	_, err = w.terminals.Authenticate(w.ctx, services.TerminalLogin{Serial: "bad serial!"}, "", "")
	if kindOf(t, err) != domain.KindValidationFailed {
		t.Fatalf("malformed serial should fail validation, got %v", err)
	}

	created, err := w.admin.CreateTerminal(w.ctx, w.m1, services.TerminalInput{ShopID: w.shop.ID, Serial: "POS-KEY", Name: "keyed"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.terminals.Authenticate(w.ctx, services.TerminalLogin{Serial: "POS-KEY", APIKey: created.APIKey}, "", ""); err != nil {
		t.Fatalf("matching api key should pass: %v", err)
	}

	if _, err := w.admin.SetTerminalActive(w.ctx, w.m1, w.t1.TerminalID, false); err != nil {
		t.Fatal(err)
	}
	if n, _ := w.store.Sessions.CountActive(w.ctx, w.t1.TerminalID); n != 0 {
		t.Fatalf("deactivation should close sessions, %d left", n)
	}
	_, err = w.terminals.Authenticate(w.ctx, services.TerminalLogin{Serial: "POS-A1"}, "", "")
	if kindOf(t, err) != domain.KindForbidden || reason(err) != "INACTIVE" {
		t.Fatalf("inactive terminal: want FORBIDDEN/INACTIVE, got %v", err)
	}

	off := false
	if _, err := w.admin.UpdateShop(w.ctx, w.m1, w.shop.ID, services.ShopPatch{Active: &off}); err != nil {
		t.Fatal(err)
	}
	_, err = w.terminals.Authenticate(w.ctx, services.TerminalLogin{Serial: "POS-A2"}, "", "")
	if reason(err) != "INACTIVE" {
		t.Fatalf("terminal of an inactive shop: got %v", err)
	}

	if _, err := w.admin.SetMerchantActive(w.ctx, w.op, w.m2.MerchantID, false); err != nil {
		t.Fatal(err)
	}
	_, err = w.terminals.Authenticate(w.ctx, services.TerminalLogin{Serial: "POS-B1"}, "", "")
	if reason(err) != "INACTIVE" {
		t.Fatalf("terminal of an inactive merchant: got %v", err)
	}
	if _, err := w.auth.Resolve(w.ctx, "", "", ""); kindOf(t, err) != domain.KindUnauthenticated {
		t.Fatalf("empty bearer, got %v", err)
	}
}

func TestMerchantTokens(t *testing.T) {
	e := newEnv(t)
	e.merchant("gamma")

	_, err := e.auth.MerchantLogin(e.ctx, services.Credentials{Username: "gamma", Password: "wrong-pass"})
	if kindOf(t, err) != domain.KindUnauthenticated {
		t.Fatalf("wrong password, got %v", err)
	}
	_, err = e.auth.MerchantLogin(e.ctx, services.Credentials{Username: "nobody", Password: testPassword})
	if kindOf(t, err) != domain.KindUnauthenticated {
		t.Fatalf("unknown user, got %v", err)
	}

	tok, err := e.auth.MerchantLogin(e.ctx, services.Credentials{Username: "gamma", Password: testPassword})
	if err != nil {
		t.Fatal(err)
	}
	if tok.Kind != domain.PrincipalMerchant || !tok.ExpiresAt.After(time.Now()) {
		t.Fatalf("token wrong: %+v", tok)
	}
	p, err := e.auth.Resolve(e.ctx, tok.Token, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if p.Actor != "merchant:gamma" || p.Scope.MerchantID() != p.MerchantID || !p.Scope.Empty() {
		t.Fatalf("merchant principal wrong: %+v", p)
	}

	tampered := tok.Token[:len(tok.Token)-2] + "xx"
	if _, err := e.auth.Resolve(e.ctx, tampered, "", ""); kindOf(t, err) != domain.KindUnauthenticated {
		t.Fatalf("tampered token, got %v", err)
	}
	other := services.NewAuthService(e.store, e.terminals, "another-secret", time.Hour)
	if _, err := other.Resolve(e.ctx, tok.Token, "", ""); kindOf(t, err) != domain.KindUnauthenticated {
		t.Fatalf("token signed with another key, got %v", err)
	}
	e.auth.Now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := e.auth.Resolve(e.ctx, tok.Token, "", ""); kindOf(t, err) != domain.KindUnauthenticated {
		t.Fatalf("expired token, got %v", err)
	}
	e.auth.Now = time.Now

	if err := e.auth.Logout(e.ctx, p); err != nil {
		t.Fatal(err)
	}
	if _, err := e.auth.Resolve(e.ctx, tok.Token, "", ""); kindOf(t, err) != domain.KindUnauthenticated {
		t.Fatalf("revoked token, got %v", err)
	}

	if _, err := e.admin.SetMerchantActive(e.ctx, e.op, p.MerchantID, false); err != nil {
		t.Fatal(err)
	}
	_, err = e.auth.MerchantLogin(e.ctx, services.Credentials{Username: "gamma", Password: testPassword})
	if kindOf(t, err) != domain.KindForbidden || reason(err) != "INACTIVE" {
		t.Fatalf("inactive merchant, got %v", err)
	}
}

func TestOperatorLogin(t *testing.T) {
	e := newEnv(t)
	if err := services.EnsureOperator(e.ctx, e.store, "root", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := e.auth.OperatorLogin(e.ctx, services.Credentials{Username: "root", Password: "x"}); kindOf(t, err) != domain.KindUnauthenticated {
		t.Fatalf("operator without password must not exist, got %v", err)
	}

	if err := services.EnsureOperator(e.ctx, e.store, "root", "op-password"); err != nil {
		t.Fatal(err)
	}
	if err := services.EnsureOperator(e.ctx, e.store, "root", "changed-later"); err != nil {
		t.Fatal(err)
	}
	tok, err := e.auth.OperatorLogin(e.ctx, services.Credentials{Username: "root", Password: "op-password"})
	if err != nil {
		t.Fatalf("first password should stick: %v", err)
	}
	p, err := e.auth.Resolve(e.ctx, tok.Token, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsOperator() || !p.Scope.Unrestricted() || p.Actor != "operator:root" {
		t.Fatalf("operator principal wrong: %+v", p)
	}
	if _, err := e.auth.MerchantLogin(e.ctx, services.Credentials{Username: "root", Password: "op-password"}); kindOf(t, err) != domain.KindUnauthenticated {
		t.Fatalf("operator credentials are not merchant credentials, got %v", err)
	}
}
